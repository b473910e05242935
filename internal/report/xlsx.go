package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/txrecover/internal/core"
)

// Workbook sheet names.
const (
	SheetSummary    = "Summary"
	SheetProviders  = "Providers"
	SheetMessages   = "Messages"
	SheetRejections = "Rejections"
	SheetRetries    = "Retries"
)

// WriteXLSX writes the report as a workbook with one sheet per table.
func WriteXLSX(w io.Writer, in *Insight) error {
	f, err := BuildWorkbook(in)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// BuildWorkbook lays out the report in an excelize file. The caller closes it.
func BuildWorkbook(in *Insight) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	sheets := []struct {
		name  string
		fill  func(*sheet)
		width float64
	}{
		{SheetSummary, in.fillSummary, 16},
		{SheetProviders, in.fillProviders, 14},
		{SheetMessages, in.fillMessages, 18},
		{SheetRejections, in.fillRejections, 24},
		{SheetRetries, in.fillRetries, 22},
	}
	for _, s := range sheets {
		if s.name != SheetSummary {
			if _, err := f.NewSheet(s.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("create sheet %s: %w", s.name, err)
			}
		}
		sh := &sheet{f: f, name: s.name}
		s.fill(sh)
		if sh.err == nil && sh.row > 0 {
			sh.err = f.SetRowStyle(s.name, 1, 1, header)
		}
		if sh.err == nil {
			sh.err = f.SetColWidth(s.name, "A", "L", s.width)
		}
		if sh.err != nil {
			f.Close()
			return nil, fmt.Errorf("fill sheet %s: %w", s.name, sh.err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// sheet appends rows to one worksheet and keeps the first error.
type sheet struct {
	f    *excelize.File
	name string
	row  int
	err  error
}

func (s *sheet) append(values ...any) {
	if s.err != nil {
		return
	}
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetSheetRow(s.name, cell, &values)
}

func (in *Insight) fillSummary(s *sheet) {
	cols := []any{"Section", "Total", "From", "To"}
	for _, st := range core.StatusOrder {
		cols = append(cols, StatusLabel(st))
	}
	for _, ch := range core.ChannelOrder {
		cols = append(cols, ChannelLabel(ch))
	}
	cols = append(cols, "Blank messages")
	s.append(cols...)

	for _, sec := range in.Sections() {
		b := sec.Bucket
		row := []any{sec.Name, b.Total(), "", ""}
		if b.DateRange.Valid {
			row[2], row[3] = b.DateRange.From, b.DateRange.To
		}
		for _, st := range core.StatusOrder {
			row = append(row, b.StatusCounts[st])
		}
		for _, ch := range core.ChannelOrder {
			row = append(row, b.ChannelCounts[ch])
		}
		row = append(row, b.BlankMessages)
		s.append(row...)
	}
}

func (in *Insight) fillProviders(s *sheet) {
	s.append("Section", "Provider", "Total", "Successful", "Failed", "Abandoned", "Cancelled",
		"Success rate %", "Failure rate %", "Abandon rate %")
	for _, sec := range in.Sections() {
		for _, row := range ProviderRows(sec) {
			s.append(sec.Name, row.Provider, row.Total, row.Successful, row.Failed, row.Abandoned, row.Cancelled,
				row.SuccessRate.InexactFloat64(), row.FailureRate.InexactFloat64(), row.AbandonRate.InexactFloat64())
		}
	}
}

func (in *Insight) fillMessages(s *sheet) {
	s.append("Section", "Provider", "Kind", "Message", "Count")
	add := func(section, provider string, b *core.Bucket) {
		for _, mc := range b.SuccessMessages.Top(0) {
			s.append(section, provider, string(core.KindSuccess), DisplayMessage(mc.Message), mc.Count)
		}
		for _, mc := range b.FailureMessages.Top(0) {
			s.append(section, provider, string(core.KindFailure), DisplayMessage(mc.Message), mc.Count)
		}
	}
	for _, sec := range in.Sections() {
		add(sec.Name, "", sec.Bucket)
		for _, p := range sec.Providers {
			add(sec.Name, p.Name, p.Bucket)
		}
	}
}

func (in *Insight) fillRejections(s *sheet) {
	s.append("Line", "Reason", "Tokens")
	for _, rej := range in.Rejections {
		s.append(rej.Line, rej.Reason, strings.Join(rej.Tokens, ","))
	}
}

func (in *Insight) fillRetries(s *sheet) {
	s.append("Group", "Item", "Value")
	ri := in.Retry
	if ri == nil || ri.Customers == 0 {
		return
	}
	s.append("Outcome", "Customers who retried", ri.Customers)
	s.append("Outcome", "Ever completed after retry", ri.Succeeded)
	s.append("Outcome", "Still unresolved after retries", ri.Unresolved)
	s.append("Outcome", "Succeeded mid-sequence, ended otherwise", ri.MidSuccess)
	for _, a := range ri.Attempts {
		s.append("Attempts", a.Attempts, a.Customers)
	}
	for _, c := range ri.FinalStatuses {
		s.append("Final status", c.Label, c.Count)
	}
	for _, c := range ri.Providers {
		s.append("Provider", c.Label, c.Count)
	}
	for _, c := range ri.Regions {
		s.append("Region", c.Label, c.Count)
	}
	if ri.Gaps > 0 {
		s.append("Timing", "Average gap (minutes)", ri.AverageGap.Minutes())
		s.append("Timing", "Median gap (minutes)", ri.MedianGap.Minutes())
	}
	if ri.Longest != nil {
		s.append("Longest", "Attempts", ri.Longest.Attempts)
		s.append("Longest", "Final status", StatusLabel(ri.Longest.Final))
	}
}
