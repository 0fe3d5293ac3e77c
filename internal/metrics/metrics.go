// Package metrics exposes pricing run counters and timings to Prometheus
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwaldner/fdmc/internal/errs"
)

// Outcome labels
const (
	OutcomeOK          = "ok"
	OutcomeConfig      = "config_error"
	OutcomeInstability = "instability"
	OutcomeDomain      = "domain_error"
	OutcomeCanceled    = "canceled"
	OutcomeError       = "error"
)

// Metrics is the collector set for one process. Every instance owns its
// registry, so tests and multiple engines never collide.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal           *prometheus.CounterVec
	RunDuration         *prometheus.HistogramVec
	InstabilityTotal    *prometheus.CounterVec
	OriginHitsTotal     prometheus.Counter
	PathsTotal          prometheus.Counter
	GridCellsTotal      prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors under the given namespace
func New(namespace string) *Metrics {
	return &Metrics{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pricing runs by engine and outcome",
		}, []string{"engine", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Pricing run duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"engine"}),
		InstabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instability_total",
			Help:      "Runs rejected or aborted for numerical instability",
		}, []string{"engine"}),
		OriginHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "origin_hits_total",
			Help:      "Simulated paths absorbed at the origin",
		}),
		PathsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paths_total",
			Help:      "Simulated paths",
		}),
		GridCellsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_cells_total",
			Help:      "Finite-difference grid cells computed",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Register adds every collector to the instance registry
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.RunsTotal,
		m.RunDuration,
		m.InstabilityTotal,
		m.OriginHitsTotal,
		m.PathsTotal,
		m.GridCellsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the instance registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome classifies a run error into a label value
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, errs.ErrConfig):
		return OutcomeConfig
	case errors.Is(err, errs.ErrNumericalInstability):
		return OutcomeInstability
	case errors.Is(err, errs.ErrDomain):
		return OutcomeDomain
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	}
	return OutcomeError
}

// RecordRun counts a finished run. A nil receiver is a no-op.
func (m *Metrics) RecordRun(engine string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := Outcome(err)
	m.RunsTotal.WithLabelValues(engine, outcome).Inc()
	m.RunDuration.WithLabelValues(engine).Observe(d.Seconds())
	if outcome == OutcomeInstability {
		m.InstabilityTotal.WithLabelValues(engine).Inc()
	}
}

// RecordSimulation adds the path counters of a completed Monte Carlo run
func (m *Metrics) RecordSimulation(paths int, originHits int64) {
	if m == nil {
		return
	}
	m.PathsTotal.Add(float64(paths))
	m.OriginHitsTotal.Add(float64(originHits))
}

// RecordGrid adds the cell count of a solved surface
func (m *Metrics) RecordGrid(cells int64) {
	if m == nil {
		return
	}
	m.GridCellsTotal.Add(float64(cells))
}

// RecordHTTPRequest counts one served request
func (m *Metrics) RecordHTTPRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
