package core

import (
	"fmt"
	"strings"
	"testing"
)

func splitRow(t *testing.T, row string) []Group {
	t.Helper()
	c := NewClassifier(DefaultVocabulary())
	return NewSplitter().Split(c.ClassifyRow(strings.Split(row, ",")))
}

func TestSplitter_Split(t *testing.T) {
	tests := []struct {
		name         string
		row          string
		wantGroups   []string // tokens of each group joined by ","
		wantComplete []bool
	}{
		{
			name:         "single transaction is a no-op split",
			row:          "hubtel,Ghana,successful,card,GHS,Approved,2024-01-01T10:00:00Z",
			wantGroups:   []string{"hubtel,Ghana,successful,card,GHS,Approved,2024-01-01T10:00:00Z"},
			wantComplete: []bool{true},
		},
		{
			name: "two stitched transactions",
			row:  "Hubtel,Nigeria,failed,card,NGN,OTP expired,2024-01-01T10:00:00Z,Hubtel,Nigeria,successful,card,NGN,successful,2024-01-01T10:05:00Z",
			wantGroups: []string{
				"Hubtel,Nigeria,failed,card,NGN,OTP expired,2024-01-01T10:00:00Z",
				"Hubtel,Nigeria,successful,card,NGN,successful,2024-01-01T10:05:00Z",
			},
			wantComplete: []bool{true, true},
		},
		{
			name:         "leading boilerplate dropped",
			row:          "live,ada@example.com,paystack,Kenya,failed,mobile_money,KES,Timeout",
			wantGroups:   []string{"paystack,Kenya,failed,mobile_money,KES,Timeout"},
			wantComplete: []bool{true},
		},
		{
			name:         "adjacent providers each open a group",
			row:          "interswitch,ozow,South Africa,successful,eft,ZAR,Paid",
			wantGroups:   []string{"interswitch", "ozow,South Africa,successful,eft,ZAR,Paid"},
			wantComplete: []bool{false, true},
		},
		{
			name:         "roles in non-canonical order",
			row:          "cellulant,failed,card,Tanzania,TZS,Declined",
			wantGroups:   []string{"cellulant,failed,card,Tanzania,TZS,Declined"},
			wantComplete: []bool{true},
		},
		{
			name:         "missing channel leaves group incomplete",
			row:          "hubtel,Ghana,failed,ussd,GHS,Declined",
			wantGroups:   []string{"hubtel,Ghana,failed,ussd,GHS,Declined"},
			wantComplete: []bool{false},
		},
		{
			name:       "header row without provider yields nothing",
			row:        "created_at,provider,region,status,channel,currency,message",
			wantGroups: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := splitRow(t, tt.row)

			if len(groups) != len(tt.wantGroups) {
				t.Fatalf("got %d groups, want %d: %v", len(groups), len(tt.wantGroups), groups)
			}
			for i, g := range groups {
				if got := strings.Join(g.Tokens(), ","); got != tt.wantGroups[i] {
					t.Errorf("group %d = %q, want %q", i, got, tt.wantGroups[i])
				}
				if g.Complete != tt.wantComplete[i] {
					t.Errorf("group %d Complete = %v, want %v", i, g.Complete, tt.wantComplete[i])
				}
			}
		})
	}
}

func TestSplitter_KConcatenatedTransactions(t *testing.T) {
	vocab := DefaultVocabulary()
	builder := NewBuilder(vocab)

	base := []Transaction{
		{Provider: "hubtel", Region: "Ghana", Status: StatusFailed, Channel: ChannelMobileMoney, Message: "Insufficient funds"},
		{Provider: "paystack", Region: "Nigeria", Status: StatusSuccessful, Channel: ChannelCard, Message: "Approved"},
		{Provider: "ozow", Region: "South Africa", Status: StatusAbandoned, Channel: ChannelEFT, Message: "Customer left"},
		{Provider: "tembo_plus", Region: "Tanzania", Status: StatusCancelled, Channel: ChannelBankTransfer, Message: "Cancelled by user"},
	}

	encode := func(tx Transaction, i int) []string {
		ts := fmt.Sprintf("2024-02-0%dT08:00:00Z", i+1)
		return []string{tx.Provider, tx.Region, string(tx.Status), string(tx.Channel), "USD", "1", tx.Message, ts}
	}

	for k := 1; k <= len(base); k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			var row []string
			for i := 0; i < k; i++ {
				row = append(row, encode(base[i], i)...)
			}

			groups := NewSplitter().Split(NewClassifier(vocab).ClassifyRow(row))
			if len(groups) != k {
				t.Fatalf("got %d groups, want %d", len(groups), k)
			}

			for i, g := range groups {
				tx, err := builder.Build(g)
				if err != nil {
					t.Fatalf("group %d: Build() error: %v", i, err)
				}
				want := base[i]
				if tx.Provider != want.Provider || tx.Region != want.Region ||
					tx.Status != want.Status || tx.Channel != want.Channel || tx.Message != want.Message {
					t.Errorf("group %d = %+v, want %+v", i, tx, want)
				}
				if tx.Timestamp.Raw != fmt.Sprintf("2024-02-0%dT08:00:00Z", i+1) {
					t.Errorf("group %d timestamp = %q", i, tx.Timestamp.Raw)
				}
			}
		})
	}
}
