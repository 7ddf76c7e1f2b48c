// Package server exposes extraction and calendar export over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/ppiankov/panicbutton/internal/export"
	"github.com/ppiankov/panicbutton/internal/ingest"
	"github.com/ppiankov/panicbutton/internal/model"
	"github.com/ppiankov/panicbutton/internal/pipeline"
	"github.com/ppiankov/panicbutton/internal/review"
)

// Server provides HTTP endpoints for panicbutton.
type Server struct {
	echo     *echo.Echo
	pipeline *pipeline.Pipeline
	calendar *export.CalendarBuilder
	limiter  *Limiter
	metrics  *Metrics
	logger   *zap.Logger
	config   *model.ServerConfig
}

// requestValidator adapts validator/v10 to echo.Validator.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// NewServer creates a new HTTP server.
func NewServer(p *pipeline.Pipeline, logger *zap.Logger, cfg *model.ServerConfig) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		defaults := model.DefaultConfig().Server
		cfg = &defaults
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	s := &Server{
		echo:     e,
		pipeline: p,
		calendar: export.NewCalendarBuilder(),
		limiter:  NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize),
		metrics:  NewMetrics(),
		logger:   logger,
		config:   cfg,
	}
	e.HTTPErrorHandler = s.handleError

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.metrics.Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err),
			)

			return err
		}
	})

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", s.metrics.Handler())

	v1 := s.echo.Group("/api/v1", s.limiter.Middleware(func(echo.Context) {
		s.metrics.RateLimitedTotal.Inc()
	}))
	v1.POST("/extract", s.handleExtract)
	v1.POST("/export/ics", s.handleExportICS)
	v1.POST("/export/csv", s.handleExportCSV)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleExtract runs the extraction over the posted text.
func (s *Server) handleExtract(c echo.Context) error {
	var req ExtractRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid extract request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}
	if int64(len(req.Text)) > s.config.MaxTextBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds %d bytes", s.config.MaxTextBytes))
	}

	source := req.Source
	if source == "" {
		source = "request"
	}
	doc := ingest.NewTextDocument(req.Text, source)
	if req.Pages > 0 {
		doc.Pages = req.Pages
	}

	res, err := s.pipeline.Extract(c.Request().Context(), doc, req.DefaultYear)
	if err != nil {
		s.metrics.ExtractionsTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, pipeline.ErrExtractionUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "extraction unavailable")
		}
		return err
	}

	outcome := "ok"
	if res.Report.Cached {
		outcome = "cached"
	}
	s.metrics.ExtractionsTotal.WithLabelValues(outcome).Inc()
	s.metrics.CandidatesEmitted.Observe(float64(res.Report.Extraction.Stats.CandidatesEmitted))

	return c.JSON(http.StatusOK, res.Report)
}

// handleExportICS renders posted candidates as an iCalendar attachment.
func (s *Server) handleExportICS(c echo.Context) error {
	candidates, err := s.bindExport(c)
	if err != nil {
		return err
	}
	s.metrics.ExportsTotal.WithLabelValues("ics").Inc()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="deadlines.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(s.calendar.Build(candidates)))
}

// handleExportCSV renders posted candidates as CSV.
func (s *Server) handleExportCSV(c echo.Context) error {
	candidates, err := s.bindExport(c)
	if err != nil {
		return err
	}
	s.metrics.ExportsTotal.WithLabelValues("csv").Inc()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="deadlines.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(export.BuildCSV(candidates)))
}

// bindExport decodes an export request and applies its optional display filter.
func (s *Server) bindExport(c echo.Context) ([]model.DeadlineCandidate, error) {
	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid export request", zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	if req.MinConfidence == nil && req.Query == "" && req.Sort == "" {
		return req.Candidates, nil
	}

	order, err := review.ParseSortOrder(req.Sort)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	filter := review.Filter{Query: req.Query, Sort: order}
	if req.MinConfidence != nil {
		filter.MinConfidence = *req.MinConfidence
	}
	return filter.Apply(req.Candidates), nil
}

// handleError writes every error as {"error": "..."}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		s.logger.Error("unhandled error", zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, ErrorResponse{Error: msg})
}

// validationMessage names the first failing field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("invalid %s: failed %s", fe.Field(), fe.Tag())
	}
	return err.Error()
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
