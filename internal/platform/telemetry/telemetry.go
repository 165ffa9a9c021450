// Package telemetry exposes Prometheus collectors for the HTTP layer and the
// report-authoring workflow.
package telemetry

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

const namespace = "laudos"

var defaultDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Metrics owns every collector. A nil *Metrics is valid and records nothing,
// so packages can take it as an optional dependency.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	httpInFlight       prometheus.Gauge
	draftSaves         *prometheus.CounterVec
	saveStepFailures   *prometheus.CounterVec
	draftLoads         *prometheus.CounterVec
	gateRejections     *prometheus.CounterVec
	webhookDeliveries  *prometheus.CounterVec
	webhookDuration    prometheus.Histogram
	editorSessions     prometheus.Gauge
	editorSessionsIdle prometheus.Counter
}

// New registers the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   defaultDurationBuckets,
		}, []string{"method", "route"}),
		httpInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
		draftSaves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_saves_total",
			Help:      "Draft save sequences by outcome",
		}, []string{"outcome"}),
		saveStepFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_save_step_failures_total",
			Help:      "Draft save sequences aborted, by failing step",
		}, []string{"step"}),
		draftLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_loads_total",
			Help:      "Draft loads by outcome",
		}, []string{"outcome"}),
		gateRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_gate_rejections_total",
			Help:      "Preview or final generation attempts rejected for low completion",
		}, []string{"gate"}),
		webhookDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Final-report webhook deliveries by HTTP status (0 = transport error)",
		}, []string{"status"}),
		webhookDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_delivery_duration_seconds",
			Help:      "Final-report webhook round trip in seconds",
			Buckets:   defaultDurationBuckets,
		}),
		editorSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "editor_sessions_open",
			Help:      "Editor sessions currently held in memory",
		}),
		editorSessionsIdle: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "editor_sessions_evicted_total",
			Help:      "Editor sessions dropped after the idle timeout",
		}),
	}
}

// Middleware records request count, latency and in-flight requests keyed by
// the echo route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			m.httpInFlight.Inc()
			defer m.httpInFlight.Dec()

			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusOf(c, err))).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// statusOf returns the status that will be written for err, which echo has
// not rendered yet when the middleware sees it.
func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}

func (m *Metrics) DraftSaved(outcome string) {
	if m == nil {
		return
	}
	m.draftSaves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SaveStepFailed(step string) {
	if m == nil {
		return
	}
	m.saveStepFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) DraftLoaded(outcome string) {
	if m == nil {
		return
	}
	m.draftLoads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GateRejected(gate string) {
	if m == nil {
		return
	}
	m.gateRejections.WithLabelValues(gate).Inc()
}

func (m *Metrics) WebhookDelivered(status int, d time.Duration) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(strconv.Itoa(status)).Inc()
	m.webhookDuration.Observe(d.Seconds())
}

func (m *Metrics) SetEditorSessions(n int) {
	if m == nil {
		return
	}
	m.editorSessions.Set(float64(n))
}

func (m *Metrics) EditorSessionsEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.editorSessionsIdle.Add(float64(n))
}
