package core

import (
	"encoding/json"
	"sort"
)

// DefaultTopN is the number of messages returned by Top when n is not positive.
const DefaultTopN = 5

// MessageCount is one row of a ranked message table.
type MessageCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// FrequencyTable counts messages and remembers the order in which each
// message was first seen, so rankings break ties reproducibly.
type FrequencyTable struct {
	counts map[string]int
	order  []string
}

// NewFrequencyTable creates an empty table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{counts: make(map[string]int)}
}

// Add increments message by n.
func (f *FrequencyTable) Add(message string, n int) {
	if _, ok := f.counts[message]; !ok {
		f.order = append(f.order, message)
	}
	f.counts[message] += n
}

// Count returns the frequency of message.
func (f *FrequencyTable) Count(message string) int {
	return f.counts[message]
}

// Len returns the number of distinct messages.
func (f *FrequencyTable) Len() int {
	return len(f.order)
}

// Total returns the sum of all frequencies.
func (f *FrequencyTable) Total() int {
	total := 0
	for _, c := range f.counts {
		total += c
	}
	return total
}

// Top returns the n most frequent messages; ties keep first-insertion order.
// A non-positive n returns every message.
func (f *FrequencyTable) Top(n int) []MessageCount {
	ranked := make([]MessageCount, len(f.order))
	for i, msg := range f.order {
		ranked[i] = MessageCount{Message: msg, Count: f.counts[msg]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Merge adds other's counts. Messages new to f are appended in other's order,
// so merging tables built from consecutive line ranges reproduces the
// insertion order of a single sequential pass.
func (f *FrequencyTable) Merge(other *FrequencyTable) {
	for _, msg := range other.order {
		f.Add(msg, other.counts[msg])
	}
}

// Counts returns a copy of the frequencies, without ordering.
func (f *FrequencyTable) Counts() map[string]int {
	out := make(map[string]int, len(f.counts))
	for k, v := range f.counts {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the table as a ranked list.
func (f *FrequencyTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Top(0))
}
