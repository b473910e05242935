package core

// aggregate.go rolls transactions into nested statistics.
//
// Every transaction touches four buckets: the global bucket, its region, its
// provider, and its region+provider pair. Bucket updates are plain counter
// increments, so merging buckets is associative; the only order-sensitive
// state is the first-insertion order of message tables, which is preserved as
// long as partial results are merged in source line order.

import (
	"fmt"
	"sort"
	"time"
)

// MessageKind selects which message table Top ranks.
type MessageKind string

const (
	KindSuccess MessageKind = "success"
	KindFailure MessageKind = "failure"
)

// ParseMessageKind validates a kind name.
func ParseMessageKind(s string) (MessageKind, error) {
	switch MessageKind(s) {
	case KindSuccess, KindFailure:
		return MessageKind(s), nil
	default:
		return "", fmt.Errorf("invalid enum for kind: %q (want success or failure)", s)
	}
}

// DateRange is the span of recovered timestamps. Missing dates never extend it.
type DateRange struct {
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	Valid bool      `json:"valid"`
}

// Extend widens the range to include t. Zero times are ignored.
func (d *DateRange) Extend(t time.Time) {
	if t.IsZero() {
		return
	}
	if !d.Valid {
		d.From, d.To, d.Valid = t, t, true
		return
	}
	if t.Before(d.From) {
		d.From = t
	}
	if t.After(d.To) {
		d.To = t
	}
}

// Merge widens the range to include other.
func (d *DateRange) Merge(other DateRange) {
	if !other.Valid {
		return
	}
	d.Extend(other.From)
	d.Extend(other.To)
}

// Bucket accumulates statistics for one grouping key.
type Bucket struct {
	StatusCounts    map[Status]int  `json:"status_counts"`
	ChannelCounts   map[Channel]int `json:"channel_counts"`
	SuccessMessages *FrequencyTable `json:"success_messages"`
	FailureMessages *FrequencyTable `json:"failure_messages"`
	BlankMessages   int             `json:"blank_messages"`
	DateRange       DateRange       `json:"date_range"`
}

// NewBucket creates an empty bucket.
func NewBucket() *Bucket {
	return &Bucket{
		StatusCounts:    make(map[Status]int),
		ChannelCounts:   make(map[Channel]int),
		SuccessMessages: NewFrequencyTable(),
		FailureMessages: NewFrequencyTable(),
	}
}

// Record folds one transaction into the bucket.
func (b *Bucket) Record(tx Transaction) {
	b.StatusCounts[tx.Status]++
	b.ChannelCounts[tx.Channel]++

	switch {
	case tx.Status.IsSuccess():
		b.SuccessMessages.Add(tx.Message, 1)
	case tx.Status.IsFailure():
		b.FailureMessages.Add(tx.Message, 1)
	}

	if tx.Message == BlankMessage {
		b.BlankMessages++
	}

	if !tx.Timestamp.Missing() {
		b.DateRange.Extend(tx.Timestamp.At)
	}
}

// Merge adds other's statistics to b.
func (b *Bucket) Merge(other *Bucket) {
	for s, n := range other.StatusCounts {
		b.StatusCounts[s] += n
	}
	for c, n := range other.ChannelCounts {
		b.ChannelCounts[c] += n
	}
	b.SuccessMessages.Merge(other.SuccessMessages)
	b.FailureMessages.Merge(other.FailureMessages)
	b.BlankMessages += other.BlankMessages
	b.DateRange.Merge(other.DateRange)
}

// Total returns the number of transactions recorded.
func (b *Bucket) Total() int {
	total := 0
	for _, n := range b.StatusCounts {
		total += n
	}
	return total
}

// Top returns the n most frequent success or failure messages.
// Ties break by first insertion. A non-positive n means DefaultTopN.
func (b *Bucket) Top(kind MessageKind, n int) []MessageCount {
	if n <= 0 {
		n = DefaultTopN
	}
	if kind == KindFailure {
		return b.FailureMessages.Top(n)
	}
	return b.SuccessMessages.Top(n)
}

// RegionProvider keys a region+provider bucket.
type RegionProvider struct {
	Region   string
	Provider string
}

// Report is the nested aggregation of one run.
type Report struct {
	Global          *Bucket
	Regions         map[string]*Bucket
	Providers       map[string]*Bucket
	RegionProviders map[RegionProvider]*Bucket
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		Global:          NewBucket(),
		Regions:         make(map[string]*Bucket),
		Providers:       make(map[string]*Bucket),
		RegionProviders: make(map[RegionProvider]*Bucket),
	}
}

// Region returns the bucket for region, or nil.
func (r *Report) Region(region string) *Bucket {
	return r.Regions[region]
}

// RegionProvider returns the bucket for a region+provider pair, or nil.
func (r *Report) RegionProvider(region, provider string) *Bucket {
	return r.RegionProviders[RegionProvider{Region: region, Provider: provider}]
}

// RegionNames lists regions with data: those in order first, then the rest sorted.
func (r *Report) RegionNames(order []string) []string {
	names := make([]string, 0, len(r.Regions))
	listed := make(map[string]bool, len(order))
	for _, name := range order {
		listed[name] = true
		if _, ok := r.Regions[name]; ok {
			names = append(names, name)
		}
	}
	var rest []string
	for name := range r.Regions {
		if !listed[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// ProviderNames lists providers with data, sorted.
func (r *Report) ProviderNames() []string {
	names := make([]string, 0, len(r.Providers))
	for name := range r.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProvidersIn lists the providers seen in region, sorted.
func (r *Report) ProvidersIn(region string) []string {
	var names []string
	for key := range r.RegionProviders {
		if key.Region == region {
			names = append(names, key.Provider)
		}
	}
	sort.Strings(names)
	return names
}

// Merge adds other's buckets to r.
func (r *Report) Merge(other *Report) {
	r.Global.Merge(other.Global)
	mergeInto(r.Regions, other.Regions)
	mergeInto(r.Providers, other.Providers)
	mergeInto(r.RegionProviders, other.RegionProviders)
}

func mergeInto[K comparable](dst, src map[K]*Bucket) {
	for k, b := range src {
		target, ok := dst[k]
		if !ok {
			target = NewBucket()
			dst[k] = target
		}
		target.Merge(b)
	}
}

// Aggregator folds transactions into a Report.
// It is not safe for concurrent use; merge per-worker Reports instead.
type Aggregator struct {
	report *Report
}

// NewAggregator creates an Aggregator with an empty report.
func NewAggregator() *Aggregator {
	return &Aggregator{report: NewReport()}
}

// Record updates the global, region, provider and region+provider buckets.
func (a *Aggregator) Record(tx Transaction) {
	r := a.report
	r.Global.Record(tx)
	bucketFor(r.Regions, tx.Region).Record(tx)
	bucketFor(r.Providers, tx.Provider).Record(tx)
	bucketFor(r.RegionProviders, RegionProvider{Region: tx.Region, Provider: tx.Provider}).Record(tx)
}

// Report returns the accumulated report.
func (a *Aggregator) Report() *Report {
	return a.report
}

func bucketFor[K comparable](m map[K]*Bucket, key K) *Bucket {
	b, ok := m[key]
	if !ok {
		b = NewBucket()
		m[key] = b
	}
	return b
}

// Aggregate builds a Report from transactions in order.
func Aggregate(txs []Transaction) *Report {
	agg := NewAggregator()
	for _, tx := range txs {
		agg.Record(tx)
	}
	return agg.Report()
}
