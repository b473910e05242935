package core

// parse.go drives a whole export through the recovery pipeline:
//
//	csv tokens -> Classifier.ClassifyRow -> Splitter.Split -> Builder.Build
//
// Rows are independent. A group that cannot be built, or a line the CSV
// tokenizer rejects, is counted and skipped; only an unreadable file, an
// empty file, or a file yielding no transactions fails the run.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// contextCheckInterval is how often (in rows) to check for context cancellation.
const contextCheckInterval = 100

// parallelBatchSize is the number of rows handed to the worker pool at once.
const parallelBatchSize = 2048

// maxRejectionDetails caps the rejections kept for export; the counter is exact.
const maxRejectionDetails = 10000

// ParseOptions configures a Parser.
type ParseOptions struct {
	Vocabulary        *Vocabulary  // nil means DefaultVocabulary
	Workers           int          // >1 parses rows concurrently
	MaxBytes          int64        // 0 disables the size limit
	CanonicalMessages bool         // fold message variants with CanonicalMessage
	Logger            *slog.Logger // nil means slog.Default
}

// Parser recovers transactions from export rows.
type Parser struct {
	classifier *Classifier
	splitter   *Splitter
	builder    *Builder
	workers    int
	maxBytes   int64
	logger     *slog.Logger
}

// NewParser creates a Parser from opts.
func NewParser(opts ParseOptions) *Parser {
	vocab := opts.Vocabulary
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	var builderOpts []BuilderOption
	if opts.CanonicalMessages {
		builderOpts = append(builderOpts, WithMessageNormalizer(CanonicalMessage))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Parser{
		classifier: NewClassifier(vocab),
		splitter:   NewSplitter(),
		builder:    NewBuilder(vocab, builderOpts...),
		workers:    workers,
		maxBytes:   opts.MaxBytes,
		logger:     logger,
	}
}

// rowResult is the outcome of one physical row.
type rowResult struct {
	transactions []Transaction
	rejections   []Rejection
	groups       int
}

// ParseRow recovers the transactions of one tokenized row.
// It is safe for concurrent use.
func (p *Parser) ParseRow(line int, tokens []string) ([]Transaction, []Rejection) {
	res := p.parseRow(line, tokens)
	return res.transactions, res.rejections
}

func (p *Parser) parseRow(line int, tokens []string) rowResult {
	var res rowResult
	groups := p.splitter.Split(p.classifier.ClassifyRow(tokens))
	res.groups = len(groups)

	for _, g := range groups {
		tx, err := p.builder.Build(g)
		if err != nil {
			res.rejections = append(res.rejections, Rejection{
				Line:   line,
				Reason: err.Error(),
				Tokens: g.Tokens(),
			})
			continue
		}
		tx.Line = line
		res.transactions = append(res.transactions, tx)
	}
	return res
}

// rowJob is a tokenized row waiting for the worker pool.
type rowJob struct {
	line   int
	tokens []string
}

// Parse reads an export from r. name is used in errors and logs only.
func (p *Parser) Parse(ctx context.Context, name string, r io.Reader) (*ParseResult, error) {
	start := time.Now()
	runID := RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.New().String()
	}
	result := &ParseResult{
		RunID:    runID,
		FileName: name,
	}
	logger := p.logger.With("run_id", result.RunID, "file", name)

	counter := WrapExport(r, p.maxBytes)
	reader := csv.NewReader(counter)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var batch []rowJob
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		results, err := p.parseBatch(ctx, batch)
		if err != nil {
			return err
		}
		for _, res := range results {
			result.add(res, logger)
		}
		batch = batch[:0]
		return nil
	}

	for {
		tokens, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.Rows++

		if result.Rows%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("analysis cancelled after %d rows: %w", result.Rows, err)
			}
		}

		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && !errors.Is(err, ErrFileTooLarge) {
				result.reject(Rejection{Line: perr.StartLine, Reason: "invalid csv: " + perr.Err.Error()})
				logger.Debug("skipping unreadable line", "line", perr.StartLine, "error", perr.Err)
				continue
			}
			return nil, &FileReadError{Path: name, Err: err}
		}
		line, _ := reader.FieldPos(0)

		if blankRow(tokens) {
			continue
		}

		if p.workers == 1 {
			result.add(p.parseRow(line, tokens), logger)
			continue
		}
		batch = append(batch, rowJob{line: line, tokens: tokens})
		if len(batch) >= parallelBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	result.BytesRead = counter.BytesRead
	result.Duration = time.Since(start)

	if result.Rows == 0 {
		return nil, &FileReadError{Path: name, Err: ErrEmptyFile}
	}
	if len(result.Transactions) == 0 {
		return nil, &FileReadError{Path: name, Err: ErrNoTransactions}
	}

	logger.Info("export parsed",
		"rows", result.Rows,
		"groups", result.Groups,
		"transactions", len(result.Transactions),
		"rejected", result.Rejected,
		"bytes", result.BytesRead,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// parseBatch runs a batch of rows through the worker pool. Results are
// slotted by position, so the caller sees them in line order.
func (p *Parser) parseBatch(ctx context.Context, batch []rowJob) ([]rowResult, error) {
	results := make([]rowResult, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("analysis cancelled at line %d: %w", batch[i].line, err)
			}
			results[i] = p.parseRow(batch[i].line, batch[i].tokens)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ParseResult) add(res rowResult, logger *slog.Logger) {
	r.Groups += res.groups
	r.Transactions = append(r.Transactions, res.transactions...)
	for _, rej := range res.rejections {
		logger.Debug("rejected group", "line", rej.Line, "reason", rej.Reason)
		r.reject(rej)
	}
}

func (r *ParseResult) reject(rej Rejection) {
	r.Rejected++
	if len(r.Rejections) < maxRejectionDetails {
		r.Rejections = append(r.Rejections, rej)
	}
}

func blankRow(tokens []string) bool {
	for _, t := range tokens {
		if strings.TrimSpace(t) != "" {
			return false
		}
	}
	return true
}

// ParseFile reads and parses the export at path.
// Any failure to produce transactions is returned as a *FileReadError.
func ParseFile(ctx context.Context, path string, opts ParseOptions) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &FileReadError{Path: path, Err: fmt.Errorf("%s is a directory", filepath.Base(path))}
	}
	if info.Size() == 0 {
		return nil, &FileReadError{Path: path, Err: ErrEmptyFile}
	}

	return NewParser(opts).Parse(ctx, path, f)
}

// ParseReader parses an export from r, typically an uploaded file.
func ParseReader(ctx context.Context, name string, r io.Reader, opts ParseOptions) (*ParseResult, error) {
	return NewParser(opts).Parse(ctx, name, r)
}
