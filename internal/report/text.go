package report

import (
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/txrecover/internal/core"
)

// printer remembers the first write error so callers check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// WriteText writes the console summary: one block per region, then the
// aggregate. Regions without transactions are skipped.
//
//	=== Kenya ===
//	  Date/time range: 2025-01-02T10:00:00Z to 2025-01-05T08:30:00Z
//	  Total transactions: 4
//	    Successful  : 3
//	    Failed      : 1
//	  Channels:
//	    Card            : 2
//	    Mobile Money    : 2
//	  Top success messages:
//	       3 × Approved
func WriteText(w io.Writer, in *Insight) error {
	p := &printer{w: w}
	for _, sec := range in.Sections() {
		if sec.Bucket == nil || sec.Bucket.Total() == 0 {
			continue
		}
		p.printf("\n=== %s ===\n", sec.Name)
		if dr := sec.Bucket.DateRange; dr.Valid {
			p.printf("  Date/time range: %s to %s\n", dr.From.Format(time.RFC3339), dr.To.Format(time.RFC3339))
		}
		writeStatusBlock(p, sec.Bucket)
		writeChannelBlock(p, sec.Bucket)
		writeTopMessages(p, sec.Bucket, core.KindSuccess, in.TopN)
		writeTopMessages(p, sec.Bucket, core.KindFailure, in.TopN)

		if len(sec.Providers) == 0 {
			continue
		}
		p.printf("  Provider breakdown:\n")
		for _, prov := range sec.Providers {
			p.printf("    - %s:\n", prov.Name)
			p.printf("        Total: %d\n", prov.Bucket.Total())
			for _, c := range StatusCounts(prov.Bucket) {
				p.printf("        %-12s: %d\n", c.Label, c.Count)
			}
			writeTopMessages(p, prov.Bucket, core.KindSuccess, in.TopN)
			writeTopMessages(p, prov.Bucket, core.KindFailure, in.TopN)
		}
	}
	return p.err
}

func writeStatusBlock(p *printer, b *core.Bucket) {
	p.printf("  Total transactions: %d\n", b.Total())
	for _, c := range StatusCounts(b) {
		p.printf("    %-12s: %d\n", c.Label, c.Count)
	}
}

func writeChannelBlock(p *printer, b *core.Bucket) {
	p.printf("  Channels:\n")
	for _, c := range ChannelCounts(b) {
		p.printf("    %-16s: %d\n", c.Label, c.Count)
	}
}

func writeTopMessages(p *printer, b *core.Bucket, kind core.MessageKind, n int) {
	top := b.Top(kind, n)
	if len(top) == 0 {
		return
	}
	p.printf("  Top %s messages:\n", kind)
	for _, mc := range top {
		p.printf("    %4d × %s\n", mc.Count, mc.Message)
	}
}
