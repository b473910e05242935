package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/txrecover/internal/config"
	"github.com/JonMunkholm/txrecover/internal/core"
)

// testExport yields three transactions and one rejected group (line 5).
const testExport = `created_at,provider,region,status,channel,currency,message
2024-01-01T10:00:00Z,hubtel,Ghana,successful,mobile_money,GHS,Approved
2024-01-01T10:01:00Z,hubtel,Ghana,failed,mobile_money,GHS,Insufficient funds
2024-01-02T09:00:00Z,paystack,Kenya,failed,ussd,KES,Declined
2024-01-02T09:30:00Z,ozow,successful,eft,ZAR,Paid
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, opts core.ParseOptions) *Server {
	t.Helper()
	if cfg == nil {
		cfg = testConfig(t)
	}
	service := core.NewService(opts, core.NewAnalysisLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime), core.NewReportStore(cfg.Store.Capacity, cfg.Store.TTL))
	s := NewServer(service, cfg)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// analyze uploads testExport and returns the new report ID.
func analyze(t *testing.T, s *Server) string {
	t.Helper()
	rec := serve(s, uploadRequest(t, "export.csv", testExport))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, core.ParseOptions{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Limiter.MaxConcurrent)
	assert.Equal(t, 4, resp.Limiter.Available)
	assert.Zero(t, resp.Reports)
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil, core.ParseOptions{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "script-src 'none'")
	assert.NotEmpty(t, rec.Header().Get("Referrer-Policy"))

	cfg := testConfig(t)
	cfg.Security.EnableCSP = false
	s = newTestServer(t, cfg, core.ParseOptions{})
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rate.RequestsPerMinute = 2
	s := newTestServer(t, cfg, core.ParseOptions{})

	for i := 0; i < 2; i++ {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)

	other := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	assert.Equal(t, http.StatusOK, serve(s, other).Code, "limits are per client IP")
}

func TestRateLimiter_WindowReset(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	rl := newRateLimiter(1, time.Minute, stop)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.allow("10.0.0.1"))
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret-key"}
	s := newTestServer(t, cfg, core.ParseOptions{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, serve(s, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("X-API-Key", "secret-key")
	assert.Equal(t, http.StatusOK, serve(s, req).Code)

	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code,
		"health checks stay open")
}
