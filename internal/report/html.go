package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/txrecover/internal/core"
)

// emptyItem fills a list that has nothing to show.
const emptyItem = "-"

const pageStyle = `
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1d2330}
header{background:#1d2330;color:#fff;padding:24px 32px}
header p{margin:4px 0 0;color:#c9ced8}
main{padding:24px 32px;max-width:1200px}
section{background:#fff;border-radius:8px;padding:16px 24px;margin-bottom:24px}
.panel-grid{display:grid;gap:16px}
.panel-grid.two{grid-template-columns:1fr 1fr}
.details-grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(260px,1fr));gap:12px}
.sub-card{border:1px solid #e1e4ea;border-radius:6px;padding:12px}
.badge{background:#e8ecf5;border-radius:12px;padding:2px 10px;font-size:.85em}
.title-with-total{display:flex;align-items:center;gap:12px}
.muted{color:#6b7384}
table{border-collapse:collapse;width:100%}
th,td{border-bottom:1px solid #e1e4ea;padding:6px 8px;text-align:left;vertical-align:top}
ul{margin:4px 0;padding-left:20px}
`

// htmlWriter writes markup and remembers the first error, the way templ's
// generated code returns early on every write.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) render(c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

func component(fn func(h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{ctx: ctx, w: w}
		fn(h)
		return h.err
	})
}

// Page renders the complete HTML insight report.
func Page(in *Insight) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw("<!doctype html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>")
		h.text(in.Title)
		h.raw("</title><style>" + pageStyle + "</style></head><body>")
		h.render(pageHeader(in))
		h.raw("<main>")
		h.render(AggregatePanel(in.Aggregate))
		h.render(ProviderTable(ProviderRows(in.Aggregate)))
		for _, sec := range in.Regions {
			h.render(RegionSection(sec))
		}
		h.render(FailureSummary(in.Regions))
		if in.Retry != nil && in.Retry.Customers > 0 {
			h.render(RetrySection(in.Retry))
		}
		h.raw("</main></body></html>")
	})
}

func pageHeader(in *Insight) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw("<header><h1>")
		h.text(in.Title)
		h.raw("</h1><p>")
		if in.FileName != "" {
			h.text(in.FileName)
			h.raw(" · ")
		}
		h.text(fmt.Sprintf("%d transactions recovered", in.Transactions))
		if in.Rejected > 0 {
			h.text(fmt.Sprintf(", %d groups rejected", in.Rejected))
		}
		if dr := in.Aggregate.Bucket.DateRange; dr.Valid {
			h.text(fmt.Sprintf(" · %s to %s", dr.From.Format(time.RFC3339), dr.To.Format(time.RFC3339)))
		}
		h.raw("</p><p>Generated ")
		h.text(in.GeneratedAt.Format(time.RFC1123))
		if in.RunID != "" {
			h.text(" · run " + in.RunID)
		}
		h.raw("</p></header>")
	})
}

// List renders items as a <ul>, or a single dash when empty.
func List(items []string, class string) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<ul class="`)
		h.text(class)
		h.raw(`">`)
		if len(items) == 0 {
			items = []string{emptyItem}
		}
		for _, item := range items {
			h.raw("<li>")
			h.text(item)
			h.raw("</li>")
		}
		h.raw("</ul>")
	})
}

func countLines(counts []Count) []string {
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Label + " - " + strconv.Itoa(c.Count)
	}
	return out
}

func messageLines(msgs []core.MessageCount) []string {
	out := make([]string, len(msgs))
	for i, mc := range msgs {
		out[i] = DisplayMessage(mc.Message) + " - " + strconv.Itoa(mc.Count)
	}
	return out
}

// AggregatePanel shows the overall status, channel and message breakdown.
func AggregatePanel(sec Section) templ.Component {
	return component(func(h *htmlWriter) {
		b := sec.Bucket
		h.raw(`<section><div class="title-with-total"><h2>`)
		h.text(sec.Name)
		h.raw(`</h2><span class="badge">Total: `)
		h.text(strconv.Itoa(b.Total()))
		h.raw(`</span></div><div class="panel-grid two"><div><h3>Status mix</h3>`)
		h.render(List(countLines(StatusCounts(b)), "data-list"))
		h.raw("<h3>Channels</h3>")
		h.render(List(countLines(ChannelCounts(b)), "data-list"))
		h.raw("</div><div><h3>Success messages</h3>")
		h.render(List(messageLines(b.SuccessMessages.Top(0)), "data-list"))
		h.raw("<h3>Failure messages</h3>")
		h.render(List(messageLines(b.FailureMessages.Top(0)), "data-list"))
		h.raw("</div></div></section>")
	})
}

// ProviderTable renders counters, rates and messages per provider.
func ProviderTable(rows []ProviderRow) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw("<section><h2>Providers</h2><table><thead><tr>")
		for _, col := range []string{"Provider", "Total", "Successful", "Failed", "Abandoned", "Cancelled",
			"Success rate", "Failure rate", "Abandon rate", "Success messages", "Failure messages"} {
			h.raw("<th>")
			h.text(col)
			h.raw("</th>")
		}
		h.raw("</tr></thead><tbody>")
		for _, row := range rows {
			h.raw("<tr>")
			for _, cell := range []string{
				ProviderLabel(row.Provider),
				strconv.Itoa(row.Total),
				strconv.Itoa(row.Successful),
				strconv.Itoa(row.Failed),
				strconv.Itoa(row.Abandoned),
				strconv.Itoa(row.Cancelled),
				FormatPercent(row.SuccessRate),
				FormatPercent(row.FailureRate),
				FormatPercent(row.AbandonRate),
			} {
				h.raw("<td>")
				h.text(cell)
				h.raw("</td>")
			}
			h.raw("<td>")
			h.render(List(messageLines(row.Success), "table-list"))
			h.raw("</td><td>")
			h.render(List(messageLines(row.Failure), "table-list"))
			h.raw("</td></tr>")
		}
		h.raw("</tbody></table></section>")
	})
}

// RegionSection renders one region with a collapsible provider breakdown.
func RegionSection(sec Section) templ.Component {
	return component(func(h *htmlWriter) {
		b := sec.Bucket
		h.raw(`<section><div class="title-with-total"><h2>`)
		h.text(sec.Name)
		h.raw(`</h2><span class="badge">Total: `)
		h.text(strconv.Itoa(b.Total()))
		h.raw(`</span></div><div class="panel-grid two"><div><h3>Status mix</h3>`)
		h.render(List(countLines(StatusCounts(b)), "data-list"))
		if channels := ChannelCounts(b); len(channels) > 0 {
			h.raw("<h3>Channel breakdown</h3>")
			h.render(List(countLines(channels), "data-list"))
		}
		h.raw("</div><div><h3>Top success reasons</h3>")
		h.render(List(messageLines(b.SuccessMessages.Top(0)), "data-list"))
		h.raw("<h3>Top failure reasons</h3>")
		h.render(List(messageLines(b.FailureMessages.Top(0)), "data-list"))
		h.raw("</div></div>")

		if len(sec.Providers) > 0 {
			h.raw(`<details class="details-panel"><summary>Provider breakdown</summary><div class="details-grid">`)
			for _, p := range sec.Providers {
				h.render(providerCard(p))
			}
			h.raw("</div></details>")
		}
		h.raw("</section>")
	})
}

func providerCard(p ProviderSection) templ.Component {
	return component(func(h *htmlWriter) {
		b := p.Bucket
		h.raw(`<div class="sub-card"><h4>`)
		h.text(ProviderLabel(p.Name))
		h.raw(`</h4><p class="muted">Total: `)
		h.text(strconv.Itoa(b.Total()))
		h.raw("</p>")
		h.render(List(countLines(StatusCounts(b)), "stat-list"))

		success := messageLines(b.SuccessMessages.Top(0))
		failure := messageLines(b.FailureMessages.Top(0))
		if len(success) > 0 || len(failure) > 0 {
			h.raw(`<h5 class="subtle-heading">provider message highlights</h5>`)
		}
		if len(success) > 0 {
			h.render(List(success, "mini-list"))
		}
		if len(failure) > 0 {
			h.render(List(failure, "mini-list"))
		}
		h.raw("</div>")
	})
}

// FailureSummary lists each region's failure messages with their share.
func FailureSummary(regions []Section) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<section><h2>Failure reasons by region</h2><div class="details-grid">`)
		for _, sec := range regions {
			h.raw(`<div class="sub-card"><h3>`)
			h.text(sec.Name)
			h.raw("</h3>")
			shares := FailureShares(sec.Bucket)
			if len(shares) == 0 {
				h.raw(`<p class="muted">No recorded failures.</p></div>`)
				continue
			}
			h.raw(`<p class="muted">Total failed: `)
			h.text(strconv.Itoa(sec.Bucket.FailureMessages.Total()))
			h.raw("</p>")
			lines := make([]string, len(shares))
			for i, s := range shares {
				lines[i] = fmt.Sprintf("%s - %d (%s of failures)", DisplayMessage(s.Message), s.Count, FormatPercent(s.Percent))
			}
			h.render(List(lines, "mini-list"))
			h.raw("</div>")
		}
		h.raw("</div></section>")
	})
}

// RetrySection renders the customer retry behaviour panel.
func RetrySection(ri *RetryInsight) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<section><div class="title-with-total"><h2>Further insights</h2>`)
		h.raw(`<span class="badge">Customer retry behaviour</span></div>`)
		h.raw(`<div class="panel-grid two"><div class="sub-card"><h3>Customer retry outcomes</h3>`)
		h.render(List(ri.OutcomeLines(), "data-list"))
		h.raw("<h3>Final attempt statuses</h3>")
		h.render(List(countLines(ri.FinalStatuses), "data-list"))
		h.raw(`</div><div class="sub-card"><h3>Retry depth</h3>`)
		h.render(List(ri.DepthLines(), "data-list"))
		h.raw("<h3>Timing signals</h3>")
		h.render(List(ri.TimingLines(), "data-list"))
		h.raw(`</div></div><div class="panel-grid two"><div class="sub-card"><h3>Providers involved</h3>`)
		h.render(List(PresenceLines(ri.Providers), "data-list"))
		h.raw(`</div><div class="sub-card"><h3>Regions involved</h3>`)
		h.render(List(PresenceLines(ri.Regions), "data-list"))
		h.raw("</div></div></section>")
	})
}

// WriteHTML renders the insight report to w.
func WriteHTML(ctx context.Context, w io.Writer, in *Insight) error {
	return Page(in).Render(ctx, w)
}
