package core

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultPreviewRows is how many rows Preview traces when no limit is given.
const DefaultPreviewRows = 20

// maxPreviewRows caps the rows a single preview may trace.
const maxPreviewRows = 500

// PreviewSummary contains the counts for the traced rows only.
type PreviewSummary struct {
	TracedRows   int  `json:"tracedRows"`
	Groups       int  `json:"groups"`
	Transactions int  `json:"transactions"`
	Rejected     int  `json:"rejected"`
	Truncated    bool `json:"truncated"` // more rows followed the traced ones
}

// FieldPreview shows the role a token was classified as.
type FieldPreview struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Role  string `json:"role"`
}

// TransactionPreview is the JSON form of a recovered transaction.
type TransactionPreview struct {
	Timestamp string         `json:"timestamp,omitempty"`
	Provider  string         `json:"provider"`
	Region    string         `json:"region"`
	Status    Status         `json:"status"`
	Channel   Channel        `json:"channel"`
	Message   string         `json:"message"`
	Customer  string         `json:"customer,omitempty"`
	Currency  pgtype.Text    `json:"currency"`
	Rate      pgtype.Numeric `json:"rate"`
}

// GroupPreview is one candidate group and what became of it.
type GroupPreview struct {
	Tokens      []string            `json:"tokens"`
	Complete    bool                `json:"complete"`
	Transaction *TransactionPreview `json:"transaction,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// RowPreview traces one physical row through classification and splitting.
type RowPreview struct {
	Line   int            `json:"line"`
	Fields []FieldPreview `json:"fields"`
	Groups []GroupPreview `json:"groups"`
	Error  string         `json:"error,omitempty"`
}

// PreviewResponse is the complete trace of the first rows of an export.
type PreviewResponse struct {
	FileName         string         `json:"fileName"`
	Summary          PreviewSummary `json:"summary"`
	Rows             []RowPreview   `json:"rows"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

func previewTransaction(tx Transaction) *TransactionPreview {
	return &TransactionPreview{
		Timestamp: tx.Timestamp.String(),
		Provider:  tx.Provider,
		Region:    tx.Region,
		Status:    tx.Status,
		Channel:   tx.Channel,
		Message:   tx.Message,
		Customer:  tx.Customer,
		Currency:  tx.Currency,
		Rate:      tx.Rate,
	}
}

// TraceRow shows how one tokenized row is classified, split and built.
func (p *Parser) TraceRow(line int, tokens []string) RowPreview {
	fields := p.classifier.ClassifyRow(tokens)
	row := RowPreview{Line: line, Fields: make([]FieldPreview, len(fields))}
	for i, f := range fields {
		row.Fields[i] = FieldPreview{Index: f.Index, Text: f.Text, Role: f.Role.String()}
	}

	for _, g := range p.splitter.Split(fields) {
		gp := GroupPreview{Tokens: g.Tokens(), Complete: g.Complete}
		tx, err := p.builder.Build(g)
		if err != nil {
			gp.Error = err.Error()
		} else {
			tx.Line = line
			gp.Transaction = previewTransaction(tx)
		}
		row.Groups = append(row.Groups, gp)
	}
	return row
}

// Preview traces the first rows of an export from r without aggregating or
// storing anything. It is meant for checking a vocabulary against a new
// export layout. A non-positive rows means DefaultPreviewRows.
func (p *Parser) Preview(ctx context.Context, name string, r io.Reader, rows int) (*PreviewResponse, error) {
	start := time.Now()
	if rows <= 0 {
		rows = DefaultPreviewRows
	}
	if rows > maxPreviewRows {
		rows = maxPreviewRows
	}

	reader := csv.NewReader(WrapExport(r, p.maxBytes))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	resp := &PreviewResponse{FileName: name, Rows: []RowPreview{}}
	read := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens, err := reader.Read()
		if err == io.EOF {
			break
		}
		read++

		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && !errors.Is(err, ErrFileTooLarge) {
				if len(resp.Rows) == rows {
					resp.Summary.Truncated = true
					break
				}
				resp.Rows = append(resp.Rows, RowPreview{Line: perr.StartLine, Error: "invalid csv: " + perr.Err.Error()})
				resp.Summary.Rejected++
				continue
			}
			return nil, &FileReadError{Path: name, Err: err}
		}
		if blankRow(tokens) {
			continue
		}
		if len(resp.Rows) == rows {
			resp.Summary.Truncated = true
			break
		}

		line, _ := reader.FieldPos(0)
		row := p.TraceRow(line, tokens)
		resp.Rows = append(resp.Rows, row)
		resp.Summary.Groups += len(row.Groups)
		for _, g := range row.Groups {
			if g.Transaction != nil {
				resp.Summary.Transactions++
			} else {
				resp.Summary.Rejected++
			}
		}
	}

	if read == 0 {
		return nil, &FileReadError{Path: name, Err: ErrEmptyFile}
	}
	resp.Summary.TracedRows = len(resp.Rows)
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}
