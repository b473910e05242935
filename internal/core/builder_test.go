package core

import (
	"errors"
	"strings"
	"testing"
)

func buildRow(t *testing.T, b *Builder, row string) ([]Transaction, []error) {
	t.Helper()
	var (
		txs  []Transaction
		errs []error
	)
	for _, g := range splitRow(t, row) {
		tx, err := b.Build(g)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, errs
}

func TestBuilder_StitchedRowScenario(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())
	row := "Hubtel,Nigeria,failed,card,NGN,OTP expired,2024-01-01T10:00:00Z," +
		"Hubtel,Nigeria,successful,card,NGN,successful,2024-01-01T10:05:00Z"

	txs, errs := buildRow(t, b, row)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}

	want := []struct {
		status    Status
		message   string
		timestamp string
	}{
		{StatusFailed, "OTP expired", "2024-01-01T10:00:00Z"},
		{StatusSuccessful, "successful", "2024-01-01T10:05:00Z"},
	}
	for i, tx := range txs {
		if tx.Provider != "hubtel" || tx.Region != "Nigeria" || tx.Channel != ChannelCard {
			t.Errorf("tx %d skeleton = %s/%s/%s", i, tx.Provider, tx.Region, tx.Channel)
		}
		if tx.Status != want[i].status {
			t.Errorf("tx %d status = %q, want %q", i, tx.Status, want[i].status)
		}
		if tx.Message != want[i].message {
			t.Errorf("tx %d message = %q, want %q", i, tx.Message, want[i].message)
		}
		if tx.Timestamp.String() != want[i].timestamp {
			t.Errorf("tx %d timestamp = %q, want %q", i, tx.Timestamp, want[i].timestamp)
		}
		if !tx.Currency.Valid || tx.Currency.String != "NGN" {
			t.Errorf("tx %d currency = %+v", i, tx.Currency)
		}
		if tx.Rate.Valid {
			t.Errorf("tx %d rate should be absent", i)
		}
	}
}

func TestBuilder_MissingSecondTimestamp(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())
	row := "hubtel,Ghana,failed,mobile_money,GHS,Declined,2024-01-01T10:00:00Z," +
		"hubtel,Ghana,failed,mobile_money,GHS,Declined"

	txs, errs := buildRow(t, b, row)
	if len(errs) != 0 || len(txs) != 2 {
		t.Fatalf("got %d transactions, errors %v", len(txs), errs)
	}
	if txs[0].Timestamp.Missing() {
		t.Error("first transaction lost its timestamp")
	}
	if !txs[1].Timestamp.Missing() {
		t.Errorf("second timestamp = %q, want missing", txs[1].Timestamp.Raw)
	}
	if got := txs[1].Timestamp.String(); got != MissingDateMarker {
		t.Errorf("second timestamp renders %q, want %q", got, MissingDateMarker)
	}
}

func TestBuilder_UnknownChannel(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())

	txs, errs := buildRow(t, b, "hubtel,Ghana,failed,ussd,GHS,Declined,2024-01-01T10:00:00Z")
	if len(errs) != 0 || len(txs) != 1 {
		t.Fatalf("got %d transactions, errors %v", len(txs), errs)
	}
	tx := txs[0]
	if tx.Channel != ChannelOther {
		t.Errorf("channel = %q, want %q", tx.Channel, ChannelOther)
	}
	if tx.RawChannel != "ussd" {
		t.Errorf("raw channel = %q, want ussd", tx.RawChannel)
	}
	if tx.Message != "Declined" {
		t.Errorf("message = %q, want Declined", tx.Message)
	}
}

func TestBuilder_NoChannelTokenFallsBackToOther(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())
	rows := []string{
		"paystack,Nigeria,successful",
		"paystack,Nigeria,successful,NGN,Approved",
		"paystack,Nigeria,successful,Approved now,NGN",
	}
	for _, row := range rows {
		txs, errs := buildRow(t, b, row)
		if len(errs) != 0 || len(txs) != 1 {
			t.Fatalf("%q: got %d transactions, errors %v", row, len(txs), errs)
		}
		if txs[0].Channel != ChannelOther {
			t.Errorf("%q: channel = %q, want other", row, txs[0].Channel)
		}
	}
}

func TestBuilder_CandidateChannelBeforeKnownChannel(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())

	txs, _ := buildRow(t, b, "hubtel,Ghana,failed,declined,card,GHS")
	if len(txs) != 1 {
		t.Fatalf("got %d transactions", len(txs))
	}
	if txs[0].Channel != ChannelCard {
		t.Errorf("channel = %q, want card", txs[0].Channel)
	}
	if txs[0].RawChannel != "" {
		t.Errorf("raw channel = %q, want empty", txs[0].RawChannel)
	}
	if txs[0].Message != "declined" {
		t.Errorf("message = %q, want declined", txs[0].Message)
	}
}

func TestBuilder_BlankMessage(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())
	rows := []string{
		"hubtel,Ghana,failed,card,GHS",
		"hubtel,Ghana,failed,card,GHS,,",
		`hubtel,Ghana,failed,card,GHS,""`,
		"hubtel,Ghana,failed,card,GHS,   ",
	}
	for _, row := range rows {
		txs, errs := buildRow(t, b, row)
		if len(errs) != 0 || len(txs) != 1 {
			t.Fatalf("%q: got %d transactions, errors %v", row, len(txs), errs)
		}
		if txs[0].Message != BlankMessage {
			t.Errorf("%q: message = %q, want %q", row, txs[0].Message, BlankMessage)
		}
	}
}

func TestBuilder_MessageWithCommas(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())

	txs, _ := buildRow(t, b, "ozow,South Africa,failed,eft,ZAR,Bank declined, contact bank, retry later,2024-05-01T00:00:00Z")
	if len(txs) != 1 {
		t.Fatalf("got %d transactions", len(txs))
	}
	want := "Bank declined, contact bank, retry later"
	if txs[0].Message != want {
		t.Errorf("message = %q, want %q", txs[0].Message, want)
	}
}

func TestBuilder_RateColumn(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())

	txs, _ := buildRow(t, b, "paystack,Nigeria,successful,card,ngn,1550.25,Approved")
	if len(txs) != 1 {
		t.Fatalf("got %d transactions", len(txs))
	}
	tx := txs[0]
	if tx.Currency.String != "NGN" {
		t.Errorf("currency = %q, want NGN", tx.Currency.String)
	}
	f, err := tx.Rate.Float64Value()
	if err != nil || !f.Valid || f.Float64 != 1550.25 {
		t.Errorf("rate = %+v (err %v), want 1550.25", f, err)
	}
	if tx.Message != "Approved" {
		t.Errorf("message = %q", tx.Message)
	}
}

func TestBuilder_Incomplete(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())

	tests := []struct {
		name        string
		row         string
		wantMissing []Role
	}{
		{"no region", "hubtel,failed,card", []Role{RoleRegion}},
		{"no status", "hubtel,Ghana,card", []Role{RoleStatus}},
		{"provider only", "hubtel", []Role{RoleRegion, RoleStatus}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := buildRow(t, b, tt.row)
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1", len(errs))
			}
			var ite *IncompleteTransactionError
			if !errors.As(errs[0], &ite) {
				t.Fatalf("error %T is not *IncompleteTransactionError", errs[0])
			}
			if len(ite.Missing) != len(tt.wantMissing) {
				t.Fatalf("Missing = %v, want %v", ite.Missing, tt.wantMissing)
			}
			for i := range ite.Missing {
				if ite.Missing[i] != tt.wantMissing[i] {
					t.Errorf("Missing[%d] = %v, want %v", i, ite.Missing[i], tt.wantMissing[i])
				}
			}
			if !IsIncomplete(errs[0]) {
				t.Error("IsIncomplete() = false")
			}
			if !strings.HasPrefix(errs[0].Error(), "incomplete transaction: missing ") {
				t.Errorf("Error() = %q", errs[0].Error())
			}
		})
	}
}

func TestBuilder_RejectedGroupDoesNotStopRow(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())

	txs, errs := buildRow(t, b, "interswitch,ozow,South Africa,successful,eft,ZAR,Paid")
	if len(errs) != 1 {
		t.Errorf("got %d errors, want 1", len(errs))
	}
	if len(txs) != 1 || txs[0].Provider != "ozow" {
		t.Errorf("transactions = %+v, want one ozow transaction", txs)
	}
}

func TestBuilder_CanonicalMessages(t *testing.T) {
	b := NewBuilder(DefaultVocabulary(), WithMessageNormalizer(CanonicalMessage))

	txs, _ := buildRow(t, b, "hubtel,Ghana,failed,card,GHS,OTP_EXPIRED")
	if len(txs) != 1 {
		t.Fatalf("got %d transactions", len(txs))
	}
	if txs[0].Message != "Otp expired" {
		t.Errorf("message = %q, want %q", txs[0].Message, "Otp expired")
	}
}

func TestBuilder_CustomerColumns(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())

	tests := []struct {
		name         string
		row          string
		wantCustomer string
		wantMessage  string
	}{
		{
			name:         "name and email prefer the email",
			row:          "paystack,Nigeria,Audiomack Inc.,jane@x.com,failed,card,live,Insufficient funds,2024-01-01T10:00:00Z",
			wantCustomer: "jane@x.com",
			wantMessage:  "Insufficient funds",
		},
		{
			name:         "name only",
			row:          `paystack,Nigeria,"Audiomack Inc.",failed,card,live,Insufficient funds`,
			wantCustomer: "Audiomack Inc.",
			wantMessage:  "Insufficient funds",
		},
		{
			name:         "blank customer columns",
			row:          "paystack,Nigeria,,,failed,card,live,Insufficient funds",
			wantCustomer: "",
			wantMessage:  "Insufficient funds",
		},
		{
			name:         "no customer columns",
			row:          "paystack,Nigeria,failed,card,NGN,Insufficient funds",
			wantCustomer: "",
			wantMessage:  "Insufficient funds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, errs := buildRow(t, b, tt.row)
			if len(errs) != 0 || len(txs) != 1 {
				t.Fatalf("got %d transactions, errors %v", len(txs), errs)
			}
			if txs[0].Customer != tt.wantCustomer {
				t.Errorf("customer = %q, want %q", txs[0].Customer, tt.wantCustomer)
			}
			if txs[0].Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", txs[0].Message, tt.wantMessage)
			}
		})
	}
}

func TestBuilder_CustomersDoNotSplitMessageCounts(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())
	row := "paystack,Nigeria,Audiomack Inc.,jane@x.com,failed,card,live,Insufficient funds,2024-01-01T10:00:00Z," +
		"paystack,Nigeria,Boomplay Ltd,joe@y.com,failed,card,live,Insufficient funds,2024-01-01T10:05:00Z"

	txs, errs := buildRow(t, b, row)
	if len(errs) != 0 || len(txs) != 2 {
		t.Fatalf("got %d transactions, errors %v", len(txs), errs)
	}
	top := Aggregate(txs).Global.Top(KindFailure, 5)
	if len(top) != 1 || top[0].Message != "Insufficient funds" || top[0].Count != 2 {
		t.Errorf("failure top = %+v, want one message counted twice", top)
	}
}

func TestBuilder_LoneWordAfterStatusIsMessage(t *testing.T) {
	b := NewBuilder(DefaultVocabulary())

	tests := []struct {
		row         string
		wantRaw     string
		wantMessage string
	}{
		{"paystack,Nigeria,failed,declined,2024-01-01T10:00:00Z", "", "declined"},
		{"paystack,Nigeria,failed,declined", "", "declined"},
		{"paystack,Nigeria,failed,ussd,live,Declined", "ussd", "Declined"},
		{"paystack,Nigeria,failed,ussd,Timed out", "ussd", "Timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.row, func(t *testing.T) {
			txs, errs := buildRow(t, b, tt.row)
			if len(errs) != 0 || len(txs) != 1 {
				t.Fatalf("got %d transactions, errors %v", len(txs), errs)
			}
			tx := txs[0]
			if tx.Channel != ChannelOther {
				t.Errorf("channel = %q, want other", tx.Channel)
			}
			if tx.RawChannel != tt.wantRaw {
				t.Errorf("raw channel = %q, want %q", tx.RawChannel, tt.wantRaw)
			}
			if tx.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", tx.Message, tt.wantMessage)
			}
		})
	}

	txs, _ := buildRow(t, b, "paystack,Nigeria,failed,declined,2024-01-01T10:00:00Z")
	if n := Aggregate(txs).Global.BlankMessages; n != 0 {
		t.Errorf("blank messages = %d, want 0", n)
	}
}
