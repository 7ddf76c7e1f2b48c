package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics for the API.
//
// All metrics are prefixed with "panicbutton_":
//   - panicbutton_http_requests_total{method,endpoint,status}
//   - panicbutton_http_request_duration_seconds{method,endpoint}
//   - panicbutton_extractions_total{outcome} - ok, cached or failed
//   - panicbutton_candidates_emitted - candidates per extraction
//   - panicbutton_exports_total{format}
//   - panicbutton_rate_limited_total
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ExtractionsTotal  *prometheus.CounterVec
	CandidatesEmitted prometheus.Histogram
	ExportsTotal      *prometheus.CounterVec
	RateLimitedTotal  prometheus.Counter
}

// NewMetrics registers the API metrics on a private registry, so several
// servers in one process (tests) never collide
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panicbutton_http_requests_total",
				Help: "Total HTTP requests by method, endpoint and status",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panicbutton_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"method", "endpoint"},
		),
		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panicbutton_extractions_total",
				Help: "Extraction calls by outcome",
			},
			[]string{"outcome"},
		),
		CandidatesEmitted: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "panicbutton_candidates_emitted",
				Help:    "Deadline candidates emitted per extraction",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
		),
		ExportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panicbutton_exports_total",
				Help: "Export documents rendered by format",
			},
			[]string{"format"},
		),
		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "panicbutton_rate_limited_total",
				Help: "Requests rejected by the per-client rate limit",
			},
		),
	}
}

// Middleware records request count and latency per route pattern
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			switch {
			case errors.As(err, &he):
				status = he.Code
			case err != nil:
				status = http.StatusInternalServerError
			}

			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			method := c.Request().Method

			m.RequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
