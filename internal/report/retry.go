package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/txrecover/internal/core"
)

// RetryInsight describes customers who made more than one attempt.
// Transactions without a customer value are not attributed to anyone.
type RetryInsight struct {
	Customers  int // customers with more than one attempt
	Succeeded  int // of those, customers with at least one successful attempt
	Unresolved int // of those, customers who never succeeded
	MidSuccess int // succeeded at some point but the latest attempt did not

	Attempts      []AttemptCount // ascending by attempts
	FinalStatuses []Count        // most common first
	Providers     []Count        // customers that used each provider
	Regions       []Count        // customers seen in each region

	Gaps       int // timed gaps between consecutive attempts
	AverageGap time.Duration
	MedianGap  time.Duration

	Longest *RetryStory // first customer with the most attempts
}

// AttemptCount is how many customers made a given number of attempts.
type AttemptCount struct {
	Attempts  int
	Customers int
}

// RetryStory is one customer's attempt sequence in brief.
type RetryStory struct {
	Attempts      int
	EverSucceeded bool
	Final         core.Status
}

// Retries groups transactions by customer (case-insensitive) and summarises
// the customers with more than one attempt. Attempts are ordered by
// timestamp with undated attempts last.
func Retries(txs []core.Transaction) *RetryInsight {
	var order []string
	attempts := make(map[string][]core.Transaction)
	for _, tx := range txs {
		key := strings.ToLower(strings.TrimSpace(tx.Customer))
		if key == "" {
			continue
		}
		if _, ok := attempts[key]; !ok {
			order = append(order, key)
		}
		attempts[key] = append(attempts[key], tx)
	}

	ri := &RetryInsight{}
	depth := make(map[int]int)
	final := make(map[string]int)
	providers := make(map[string]int)
	regions := make(map[string]int)
	var gaps []time.Duration

	for _, key := range order {
		list := attempts[key]
		if len(list) <= 1 {
			continue
		}
		slices.SortStableFunc(list, func(a, b core.Transaction) int {
			am, bm := a.Timestamp.At.IsZero(), b.Timestamp.At.IsZero()
			switch {
			case am && bm:
				return 0
			case am:
				return 1
			case bm:
				return -1
			}
			return a.Timestamp.At.Compare(b.Timestamp.At)
		})

		ri.Customers++
		depth[len(list)]++
		last := list[len(list)-1].Status
		final[StatusLabel(last)]++

		seenProvider := make(map[string]bool)
		seenRegion := make(map[string]bool)
		ever := false
		for i, tx := range list {
			if !seenProvider[tx.Provider] {
				seenProvider[tx.Provider] = true
				providers[ProviderLabel(tx.Provider)]++
			}
			if !seenRegion[tx.Region] {
				seenRegion[tx.Region] = true
				regions[tx.Region]++
			}
			if tx.Status.IsSuccess() {
				ever = true
			}
			if i > 0 && !tx.Timestamp.At.IsZero() && !list[i-1].Timestamp.At.IsZero() {
				gaps = append(gaps, tx.Timestamp.At.Sub(list[i-1].Timestamp.At))
			}
		}

		if ever {
			ri.Succeeded++
			if !last.IsSuccess() {
				ri.MidSuccess++
			}
		} else {
			ri.Unresolved++
		}

		if ri.Longest == nil || len(list) > ri.Longest.Attempts {
			ri.Longest = &RetryStory{Attempts: len(list), EverSucceeded: ever, Final: last}
		}
	}

	for n, c := range depth {
		ri.Attempts = append(ri.Attempts, AttemptCount{Attempts: n, Customers: c})
	}
	slices.SortFunc(ri.Attempts, func(a, b AttemptCount) int { return cmp.Compare(a.Attempts, b.Attempts) })
	ri.FinalStatuses = rankCounts(final)
	ri.Providers = rankCounts(providers)
	ri.Regions = rankCounts(regions)

	if len(gaps) > 0 {
		var sum time.Duration
		for _, g := range gaps {
			sum += g
		}
		ri.Gaps = len(gaps)
		ri.AverageGap = sum / time.Duration(len(gaps))

		slices.Sort(gaps)
		mid := len(gaps) / 2
		if len(gaps)%2 == 1 {
			ri.MedianGap = gaps[mid]
		} else {
			ri.MedianGap = (gaps[mid-1] + gaps[mid]) / 2
		}
	}
	return ri
}

// rankCounts orders counters most common first, then by label.
func rankCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		out = append(out, Count{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}

func customers(n int) string {
	if n == 1 {
		return "1 customer"
	}
	return fmt.Sprintf("%d customers", n)
}

// OutcomeLines summarises how retrying customers fared.
func (ri *RetryInsight) OutcomeLines() []string {
	if ri.Customers == 0 {
		return nil
	}
	lines := []string{
		fmt.Sprintf("Customers who retried - %d", ri.Customers),
		fmt.Sprintf("Ever completed after retry - %d", ri.Succeeded),
		fmt.Sprintf("Still unresolved after retries - %d", ri.Unresolved),
	}
	if ri.MidSuccess > 0 {
		lines = append(lines, fmt.Sprintf("Succeeded mid-sequence but ended with non-success status - %d", ri.MidSuccess))
	}
	return lines
}

// DepthLines lists the attempt distribution, e.g. "3 attempts - 2 customers".
func (ri *RetryInsight) DepthLines() []string {
	out := make([]string, len(ri.Attempts))
	for i, a := range ri.Attempts {
		out[i] = fmt.Sprintf("%d attempts - %s", a.Attempts, customers(a.Customers))
	}
	return out
}

// PresenceLines renders provider or region presence counts.
func PresenceLines(counts []Count) []string {
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Label + " - " + customers(c.Count)
	}
	return out
}

// TimingLines reports retry gaps and the longest attempt sequence.
func (ri *RetryInsight) TimingLines() []string {
	var lines []string
	if ri.Gaps > 0 {
		lines = append(lines,
			fmt.Sprintf("Average gap between attempts - %.2f hours (~%.0f minutes)", ri.AverageGap.Hours(), ri.AverageGap.Minutes()),
			fmt.Sprintf("Median gap between attempts - %.2f hours (~%.0f minutes)", ri.MedianGap.Hours(), ri.MedianGap.Minutes()),
		)
	}
	if story := ri.Longest; story != nil {
		switch {
		case story.EverSucceeded && !story.Final.IsSuccess():
			lines = append(lines, fmt.Sprintf("A customer attempted %d times, succeeded once midstream, but the latest attempt ended in %s.", story.Attempts, story.Final))
		case story.EverSucceeded:
			lines = append(lines, fmt.Sprintf("A customer attempted %d times before ending on a successful outcome.", story.Attempts))
		default:
			lines = append(lines, fmt.Sprintf("A customer attempted %d times without a success; final status was %s.", story.Attempts, story.Final))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "Timestamp data was insufficient to analyse retrial timing.")
	}
	return lines
}
