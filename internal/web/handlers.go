package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/txrecover/internal/core"
	"github.com/JonMunkholm/txrecover/internal/logging"
	"github.com/JonMunkholm/txrecover/internal/report"
	"github.com/JonMunkholm/txrecover/internal/web/templates"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in memory;
// the rest spills to a temporary file.
const multipartMemory = 32 << 20

// multipartOverhead allows for boundaries and headers around the file part.
const multipartOverhead = 1 << 20

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status  string             `json:"status"`
	Limiter core.LimiterStatus `json:"limiter"`
	Reports int                `json:"reports"`
}

// AnalyzeResponse is returned after a successful upload.
type AnalyzeResponse struct {
	core.AnalysisSummary
	Links map[string]string `json:"links"`
}

// ReportResponse is the JSON form of a stored analysis.
type ReportResponse struct {
	Summary         core.AnalysisSummary               `json:"summary"`
	Global          *core.Bucket                       `json:"global"`
	Regions         map[string]*core.Bucket            `json:"regions"`
	Providers       map[string]*core.Bucket            `json:"providers"`
	RegionProviders map[string]map[string]*core.Bucket `json:"region_providers"`
	Links           map[string]string                  `json:"links"`
}

// TopResponse lists the most frequent messages of one bucket.
type TopResponse struct {
	Kind     core.MessageKind    `json:"kind"`
	N        int                 `json:"n"`
	Region   string              `json:"region,omitempty"`
	Provider string              `json:"provider,omitempty"`
	Messages []core.MessageCount `json:"messages"`
}

func reportLinks(id string) map[string]string {
	return map[string]string{
		"self":       "/api/reports/" + id,
		"html":       "/reports/" + id,
		"top":        "/api/reports/" + id + "/top",
		"xlsx":       "/api/reports/" + id + "/export.xlsx",
		"rejections": "/api/reports/" + id + "/rejections",
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:  "ok",
		Limiter: s.service.Limiter().Status(),
		Reports: len(s.service.List()),
	})
}

func (s *Server) handleLimiterStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.service.Limiter().Status())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	templ.Handler(templates.Index(s.service.List())).ServeHTTP(w, r)
}

// handleAnalyze parses an uploaded export and stores the report.
// With ?redirect=1 the browser is sent to the HTML report.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()

	ctx, runID := WithRunID(r)
	logger := logging.WithFields(ctx, "file", header.Filename, "size", header.Size)
	logger.Info("analysis started")

	analysis, err := s.service.Analyze(ctx, header.Filename, file)
	if err != nil {
		var fre *core.FileReadError
		switch {
		case errors.Is(err, core.ErrTooManyAnalyses):
			s.metrics.ObserveFailure("busy")
			w.Header().Set("Retry-After", "30")
		case errors.As(err, &fre):
			s.metrics.ObserveFailure("rejected")
		default:
			s.metrics.ObserveFailure("error")
		}
		respondError(w, r, err, statusFor(err))
		return
	}
	s.metrics.ObserveAnalysis(analysis.Result)
	logger.Info("analysis completed",
		"transactions", len(analysis.Result.Transactions),
		"rejected", analysis.Result.Rejected,
	)

	if r.URL.Query().Get("redirect") == "1" {
		http.Redirect(w, r, "/reports/"+runID, http.StatusSeeOther)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, AnalyzeResponse{
		AnalysisSummary: analysis.Summary(),
		Links:           reportLinks(analysis.ID),
	})
}

// uploadedFile reads the "file" part of a multipart upload, writing the error
// response itself when it cannot.
func (s *Server) uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("%w: upload exceeds %d bytes", core.ErrFileTooLarge, maxSize), http.StatusRequestEntityTooLarge)
			return nil, nil, false
		}
		respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFileProvided, err), http.StatusBadRequest)
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		r.MultipartForm.RemoveAll()
		respondError(w, r, core.ErrNoFileProvided, http.StatusBadRequest)
		return nil, nil, false
	}
	return file, header, true
}

// handlePreview traces the first rows of an upload without storing a report.
// ?rows=N sets how many rows are traced.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	rows, err := parseCountParam(r, "rows", core.DefaultPreviewRows)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	file, header, ok := s.uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	defer r.MultipartForm.RemoveAll()

	ctx, _ := WithRunID(r)
	resp, err := s.service.Preview(ctx, header.Filename, file, rows)
	if err != nil {
		if errors.Is(err, core.ErrTooManyAnalyses) {
			w.Header().Set("Retry-After", "30")
		}
		respondError(w, r, err, statusFor(err))
		return
	}
	logging.FromContext(ctx).Debug("preview completed",
		"file", header.Filename,
		"rows", resp.Summary.TracedRows,
		"transactions", resp.Summary.Transactions,
	)
	render.JSON(w, r, resp)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.service.List())
}

// analysis loads the report named in the URL, writing the error response
// itself when it cannot.
func (s *Server) analysis(w http.ResponseWriter, r *http.Request) (*core.Analysis, bool) {
	a, err := s.service.Get(chi.URLParam(r, "reportID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return nil, false
	}
	return a, true
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	a, ok := s.analysis(w, r)
	if !ok {
		return
	}

	rp := make(map[string]map[string]*core.Bucket)
	for key, b := range a.Report.RegionProviders {
		if rp[key.Region] == nil {
			rp[key.Region] = make(map[string]*core.Bucket)
		}
		rp[key.Region][key.Provider] = b
	}

	render.JSON(w, r, ReportResponse{
		Summary:         a.Summary(),
		Global:          a.Report.Global,
		Regions:         a.Report.Regions,
		Providers:       a.Report.Providers,
		RegionProviders: rp,
		Links:           reportLinks(a.ID),
	})
}

// handleTop ranks messages of one bucket:
// /api/reports/{id}/top?kind=failure&n=5&region=Kenya&provider=hubtel
func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	a, ok := s.analysis(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	kindParam := q.Get("kind")
	if kindParam == "" {
		kindParam = string(core.KindFailure)
	}
	kind, err := core.ParseMessageKind(kindParam)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	n, err := parseCountParam(r, "n", s.cfg.Parse.TopN)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	region, provider := q.Get("region"), q.Get("provider")
	bucket, err := selectBucket(a.Report, region, provider)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	render.JSON(w, r, TopResponse{
		Kind:     kind,
		N:        n,
		Region:   region,
		Provider: provider,
		Messages: bucket.Top(kind, n),
	})
}

// parseCountParam reads a positive count from the query. A bad value is an
// error rather than silently replaced by the default.
func parseCountParam(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidTopCount, val)
	}
	return n, nil
}

// selectBucket picks the global, region, provider or region+provider bucket.
func selectBucket(rep *core.Report, region, provider string) (*core.Bucket, error) {
	var b *core.Bucket
	switch {
	case region != "" && provider != "":
		b = rep.RegionProvider(region, provider)
	case region != "":
		b = rep.Region(region)
	case provider != "":
		b = rep.Providers[provider]
	default:
		b = rep.Global
	}
	if b == nil {
		return nil, fmt.Errorf("%w: region %q provider %q", core.ErrNoMatchingData, region, provider)
	}
	return b, nil
}

func (s *Server) insight(a *core.Analysis) *report.Insight {
	return report.Build(a.Result, a.Report, report.Options{
		TopN:        s.cfg.Parse.TopN,
		RegionOrder: s.service.Vocabulary().Regions(),
	})
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	a, ok := s.analysis(w, r)
	if !ok {
		return
	}
	templ.Handler(report.Page(s.insight(a))).ServeHTTP(w, r)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	a, ok := s.analysis(w, r)
	if !ok {
		return
	}

	// Build before writing so a failure can still produce an error response.
	f, err := report.BuildWorkbook(s.insight(a))
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%s.xlsx"`, a.ID))
	if err := f.Write(w); err != nil {
		logging.FromContext(r.Context()).Error("xlsx write error", "report_id", a.ID, "error", err)
	}
}

// handleExportRejections exports the groups that could not be recovered as CSV.
func (s *Server) handleExportRejections(w http.ResponseWriter, r *http.Request) {
	a, ok := s.analysis(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="rejections_%s.csv"`, a.ID))
	if err := writeRejections(w, a.Result.Rejections); err != nil {
		logging.FromContext(r.Context()).Error("csv write error", "report_id", a.ID, "error", err)
	}
}
