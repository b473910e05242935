package report

import (
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/txrecover/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Percent returns part/total as a percentage rounded to one decimal place.
// A zero total yields zero.
func Percent(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		DivRound(decimal.NewFromInt(int64(total)), 1)
}

// FormatPercent renders p as "42.5%".
func FormatPercent(p decimal.Decimal) string {
	return p.StringFixed(1) + "%"
}

// ProviderRow is one line of the provider table.
type ProviderRow struct {
	Provider    string
	Total       int
	Successful  int
	Failed      int
	Abandoned   int
	Cancelled   int
	SuccessRate decimal.Decimal
	FailureRate decimal.Decimal
	AbandonRate decimal.Decimal
	Success     []core.MessageCount
	Failure     []core.MessageCount
}

// NewProviderRow computes the counters and rates of one provider bucket.
func NewProviderRow(name string, b *core.Bucket) ProviderRow {
	total := b.Total()
	row := ProviderRow{
		Provider:   name,
		Total:      total,
		Successful: b.StatusCounts[core.StatusSuccessful],
		Failed:     b.StatusCounts[core.StatusFailed],
		Abandoned:  b.StatusCounts[core.StatusAbandoned],
		Cancelled:  b.StatusCounts[core.StatusCancelled],
		Success:    b.SuccessMessages.Top(0),
		Failure:    b.FailureMessages.Top(0),
	}
	row.SuccessRate = Percent(row.Successful, total)
	row.FailureRate = Percent(row.Failed, total)
	row.AbandonRate = Percent(row.Abandoned, total)
	return row
}

// ProviderRows builds a row per provider of sec, in section order.
func ProviderRows(sec Section) []ProviderRow {
	rows := make([]ProviderRow, 0, len(sec.Providers))
	for _, p := range sec.Providers {
		rows = append(rows, NewProviderRow(p.Name, p.Bucket))
	}
	return rows
}

// Share is a failure message with its share of all failure messages.
type Share struct {
	Message string
	Count   int
	Percent decimal.Decimal
}

// FailureShares ranks every failure message of b with its share of the
// failure total. The shares of one bucket sum to 100 up to rounding.
func FailureShares(b *core.Bucket) []Share {
	total := b.FailureMessages.Total()
	if total == 0 {
		return nil
	}
	ranked := b.FailureMessages.Top(0)
	out := make([]Share, len(ranked))
	for i, mc := range ranked {
		out[i] = Share{Message: mc.Message, Count: mc.Count, Percent: Percent(mc.Count, total)}
	}
	return out
}
