package core

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// AnalysisTimeout bounds a single analysis started by the Service.
var AnalysisTimeout = 10 * time.Minute

// Analysis is one parsed and aggregated export.
type Analysis struct {
	ID        string
	FileName  string
	CreatedAt time.Time
	Result    *ParseResult
	Report    *Report
}

// AnalysisSummary is the listing view of an Analysis.
type AnalysisSummary struct {
	ID           string        `json:"id"`
	FileName     string        `json:"file_name"`
	CreatedAt    time.Time     `json:"created_at"`
	Rows         int           `json:"rows"`
	Transactions int           `json:"transactions"`
	Rejected     int           `json:"rejected"`
	Duration     time.Duration `json:"duration_ns"`
}

// Summary returns the listing view of a.
func (a *Analysis) Summary() AnalysisSummary {
	return AnalysisSummary{
		ID:           a.ID,
		FileName:     a.FileName,
		CreatedAt:    a.CreatedAt,
		Rows:         a.Result.Rows,
		Transactions: len(a.Result.Transactions),
		Rejected:     a.Result.Rejected,
		Duration:     a.Result.Duration,
	}
}

// Service analyzes uploaded exports and keeps the results for later lookup.
type Service struct {
	opts    ParseOptions
	limiter *AnalysisLimiter
	store   *ReportStore
}

// NewService creates a Service. A nil limiter or store gets a default one.
func NewService(opts ParseOptions, limiter *AnalysisLimiter, store *ReportStore) *Service {
	if opts.Vocabulary == nil {
		opts.Vocabulary = DefaultVocabulary()
	}
	if limiter == nil {
		limiter = NewAnalysisLimiter(0, 0)
	}
	if store == nil {
		store = NewReportStore(0, 0)
	}
	return &Service{opts: opts, limiter: limiter, store: store}
}

// Vocabulary returns the vocabulary every analysis uses.
func (s *Service) Vocabulary() *Vocabulary {
	return s.opts.Vocabulary
}

// Limiter returns the concurrency limiter, for status and graceful shutdown.
func (s *Service) Limiter() *AnalysisLimiter {
	return s.limiter
}

// Analyze parses and aggregates the export in r and stores the result.
func (s *Service) Analyze(ctx context.Context, name string, r io.Reader) (*Analysis, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, AnalysisTimeout)
	defer cancel()

	result, err := ParseReader(ctx, name, r, s.opts)
	if err != nil {
		slog.Error("analysis failed", "file", name, "error", err)
		return nil, err
	}

	a := &Analysis{
		ID:        result.RunID,
		FileName:  name,
		CreatedAt: time.Now(),
		Result:    result,
		Report:    Aggregate(result.Transactions),
	}
	s.store.Put(a)
	return a, nil
}

// Get returns a stored analysis, or ErrReportNotFound.
func (s *Service) Get(id string) (*Analysis, error) {
	return s.store.Get(id)
}

// List returns summaries of stored analyses, newest first.
func (s *Service) List() []AnalysisSummary {
	return s.store.List()
}

// Preview traces the first rows of the export in r. Nothing is stored, but
// the preview still counts against the concurrency limit.
func (s *Service) Preview(ctx context.Context, name string, r io.Reader, rows int) (*PreviewResponse, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, AnalysisTimeout)
	defer cancel()

	return NewParser(s.opts).Preview(ctx, name, r, rows)
}
