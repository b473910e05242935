// Package report renders aggregated transaction statistics.
//
// Three renderings share one view model:
//
//   - WriteText prints the console summary (per region, then Aggregate)
//   - Page is a templ component for the HTML insight report
//   - WriteXLSX builds a workbook with the same tables
//
// The HTML and workbook renderings also carry the customer retry analysis.
//
// Sections are built once with Build and can be rendered any number of times.
package report

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/txrecover/internal/core"
)

// AggregateName labels the section covering every region.
const AggregateName = "Aggregate"

// BlankDisplay is how a blank provider message is shown to readers.
const BlankDisplay = "No provider message (blank)"

// title builds a Caser per call; a Caser keeps state and is not safe to share.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

// Section is one block of the report: a region or the aggregate.
type Section struct {
	Name      string
	Bucket    *core.Bucket
	Providers []ProviderSection
}

// ProviderSection is a provider's statistics within a Section.
type ProviderSection struct {
	Name   string
	Bucket *core.Bucket
}

// Insight is everything a renderer needs.
type Insight struct {
	Title       string
	FileName    string
	RunID       string
	GeneratedAt time.Time
	TopN        int

	Rows         int
	Transactions int
	Rejected     int
	Rejections   []core.Rejection

	Regions   []Section // in vocabulary order, then any others sorted
	Aggregate Section   // providers are the global per-provider buckets

	Retry *RetryInsight // nil without a parse result
}

// Options controls Build.
type Options struct {
	Title       string
	TopN        int      // non-positive means core.DefaultTopN
	RegionOrder []string // usually Vocabulary.Regions()
	Now         func() time.Time
}

// Build assembles an Insight from a parse result and its report.
// result may be nil when only the aggregation is available.
func Build(result *core.ParseResult, rep *core.Report, opts Options) *Insight {
	topN := opts.TopN
	if topN <= 0 {
		topN = core.DefaultTopN
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	heading := opts.Title
	if heading == "" {
		heading = "Transaction insight report"
	}

	in := &Insight{
		Title:       heading,
		GeneratedAt: now(),
		TopN:        topN,
	}
	if result != nil {
		in.FileName = result.FileName
		in.RunID = result.RunID
		in.Rows = result.Rows
		in.Transactions = len(result.Transactions)
		in.Rejected = result.Rejected
		in.Rejections = result.Rejections
		in.Retry = Retries(result.Transactions)
	} else {
		in.Transactions = rep.Global.Total()
	}

	for _, region := range rep.RegionNames(opts.RegionOrder) {
		b := rep.Region(region)
		if b == nil || b.Total() == 0 {
			continue
		}
		sec := Section{Name: region, Bucket: b}
		for _, provider := range rep.ProvidersIn(region) {
			sec.Providers = append(sec.Providers, ProviderSection{
				Name:   provider,
				Bucket: rep.RegionProvider(region, provider),
			})
		}
		in.Regions = append(in.Regions, sec)
	}

	in.Aggregate = Section{Name: AggregateName, Bucket: rep.Global}
	for _, provider := range rep.ProviderNames() {
		in.Aggregate.Providers = append(in.Aggregate.Providers, ProviderSection{
			Name:   provider,
			Bucket: rep.Providers[provider],
		})
	}
	return in
}

// Sections returns the regions followed by the aggregate, the order the
// console summary prints them.
func (in *Insight) Sections() []Section {
	out := make([]Section, 0, len(in.Regions)+1)
	out = append(out, in.Regions...)
	return append(out, in.Aggregate)
}

// DisplayMessage replaces the blank marker with a readable label.
func DisplayMessage(msg string) string {
	if msg == core.BlankMessage {
		return BlankDisplay
	}
	return msg
}

// StatusLabel returns "Successful", "Inprogress", ...
func StatusLabel(s core.Status) string {
	return title(string(s))
}

// ChannelLabel returns "Card", "Bank Transfer", "Mobile Money", ...
func ChannelLabel(c core.Channel) string {
	return title(strings.ReplaceAll(string(c), "_", " "))
}

// ProviderLabel title-cases a provider name for headings.
func ProviderLabel(p string) string {
	return title(strings.ReplaceAll(p, "_", " "))
}

// Count is a labelled counter line.
type Count struct {
	Label string
	Count int
}

// StatusCounts lists the non-zero statuses in display order.
func StatusCounts(b *core.Bucket) []Count {
	var out []Count
	for _, s := range core.StatusOrder {
		if n := b.StatusCounts[s]; n > 0 {
			out = append(out, Count{Label: StatusLabel(s), Count: n})
		}
	}
	return out
}

// ChannelCounts lists the non-zero channels in display order.
func ChannelCounts(b *core.Bucket) []Count {
	var out []Count
	for _, c := range core.ChannelOrder {
		if n := b.ChannelCounts[c]; n > 0 {
			out = append(out, Count{Label: ChannelLabel(c), Count: n})
		}
	}
	return out
}
