package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/panicbutton/internal/export"
	"github.com/ppiankov/panicbutton/internal/model"
	"github.com/ppiankov/panicbutton/internal/pipeline"
)

func setupTestServer(t *testing.T, mutate ...func(*model.ServerConfig)) *Server {
	t.Helper()

	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	for _, m := range mutate {
		m(&cfg.Server)
	}

	clock := func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }
	p := pipeline.NewPipeline(cfg, zap.NewNop(), pipeline.WithClock(clock))

	server, err := NewServer(p, zap.NewNop(), &cfg.Server)
	require.NoError(t, err)
	server.calendar = export.NewCalendarBuilder().WithClock(clock)
	return server
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	p := pipeline.NewPipeline(model.DefaultConfig(), zap.NewNop())

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(p, zap.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 8787, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(p, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when pipeline is nil", func(t *testing.T) {
		_, err := NewServer(nil, zap.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pipeline cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	rec := do(t, setupTestServer(t), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleExtract(t *testing.T) {
	server := setupTestServer(t)

	t.Run("extracts candidates", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/v1/extract", ExtractRequest{
			Text:        "Assignment 1 due 2026-02-07\nRandom text 2026-02-07 more text",
			DefaultYear: 2026,
			Pages:       4,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var report model.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, 4, report.Pages)
		assert.Equal(t, "request", report.Source)
		assert.Equal(t, 2, report.Extraction.Stats.TotalDatesFound)
		require.Len(t, report.Extraction.Candidates, 1)
		assert.Equal(t, "Assignment 1", report.Extraction.Candidates[0].Title)
		assert.Equal(t, "2026-02-07", report.Extraction.Candidates[0].ISODate)
	})

	t.Run("default year falls back to current year", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/v1/extract", ExtractRequest{Text: "Midterm Oct 14"})
		require.Equal(t, http.StatusOK, rec.Code)

		var report model.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, 2026, report.DefaultYear)
	})

	t.Run("missing text", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/v1/extract", ExtractRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "Text")
	})

	t.Run("year out of range", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/v1/extract", ExtractRequest{Text: "x", DefaultYear: 1800})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "DefaultYear")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/v1/extract", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleExtract_TextTooLarge(t *testing.T) {
	server := setupTestServer(t, func(c *model.ServerConfig) { c.MaxTextBytes = 10 })

	rec := do(t, server, http.MethodPost, "/api/v1/extract", ExtractRequest{Text: "Assignment 1 due 2026-02-07"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func exportCandidates() []model.DeadlineCandidate {
	return []model.DeadlineCandidate{
		{ID: "cand_a", Title: "Assignment 1", Category: model.CategoryAssignment, ISODate: "2026-02-07", Confidence: 83, Flags: []string{}},
		{ID: "cand_b", Title: "Quiz 2", Category: model.CategoryQuiz, ISODate: "2026-03-04", Time24h: "10:00", Confidence: 50, Flags: []string{}},
		{ID: "cand_c", Title: "Broken", Category: model.CategoryOther, ISODate: "2026-02-30x", Confidence: 90, Flags: []string{}},
	}
}

func TestHandleExportICS(t *testing.T) {
	rec := do(t, setupTestServer(t), http.MethodPost, "/api/v1/export/ics", ExportRequest{Candidates: exportCandidates()})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "deadlines.ics")

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n"))
	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"), "invalid date is skipped")
	assert.Contains(t, body, "DTSTAMP:20260115T120000Z")
	assert.Contains(t, body, "DTSTART;VALUE=DATE:20260207")
	assert.Contains(t, body, "DTSTART:20260304T100000")
}

func TestHandleExportICS_Filtered(t *testing.T) {
	minConfidence := 60
	rec := do(t, setupTestServer(t), http.MethodPost, "/api/v1/export/ics", ExportRequest{
		Candidates:    exportCandidates(),
		MinConfidence: &minConfidence,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))
}

func TestHandleExportICS_EmptyCandidates(t *testing.T) {
	rec := do(t, setupTestServer(t), http.MethodPost, "/api/v1/export/ics", `{"candidates":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "BEGIN:VEVENT")
	assert.Contains(t, rec.Body.String(), "END:VCALENDAR\r\n")
}

func TestHandleExportCSV(t *testing.T) {
	server := setupTestServer(t)

	rec := do(t, server, http.MethodPost, "/api/v1/export/csv", ExportRequest{
		Candidates: exportCandidates(),
		Sort:       "confidence-desc",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, strings.Join([]string{
		"title,type,dateISO,time24h,confidence",
		`"Assignment 1","assignment","2026-02-07","","83"`,
		`"Quiz 2","quiz","2026-03-04","10:00","50"`,
	}, "\n"), rec.Body.String())

	t.Run("unknown sort", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/v1/export/csv", ExportRequest{Candidates: exportCandidates(), Sort: "random"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing candidates", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/v1/export/csv", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	server := setupTestServer(t, func(c *model.ServerConfig) {
		c.RequestsPerSecond = 0.001
		c.BurstSize = 2
	})

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/export/csv", strings.NewReader(`{"candidates":[]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.1").Code)
	assert.Equal(t, http.StatusOK, send("192.0.2.1").Code)

	limited := send("192.0.2.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send("192.0.2.2").Code, "other clients keep their own bucket")

	health := do(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, health.Code, "health is never limited")
}

func TestMetricsEndpoint(t *testing.T) {
	server := setupTestServer(t)

	do(t, server, http.MethodPost, "/api/v1/extract", ExtractRequest{Text: "Assignment 1 due 2026-02-07", DefaultYear: 2026})
	do(t, server, http.MethodPost, "/api/v1/export/ics", ExportRequest{Candidates: exportCandidates()})

	rec := do(t, server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `panicbutton_extractions_total{outcome="ok"} 1`)
	assert.Contains(t, body, `panicbutton_exports_total{format="ics"} 1`)
	assert.Contains(t, body, `panicbutton_http_requests_total{endpoint="/api/v1/extract",method="POST",status="200"} 1`)
	assert.Contains(t, body, "panicbutton_candidates_emitted_count 1")
}
