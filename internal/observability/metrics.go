package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the simulation API surface
// and provides helpers to wire them into HTTP handlers.
type SimCollector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	Runs         *prometheus.CounterVec
	RunDurations *prometheus.HistogramVec
}

// Run kinds and outcomes recorded by RecordRun.
const (
	KindConstellation = "constellation"
	KindLinkBudget    = "link_budget"
	KindMission       = "mission"
	KindISL           = "isl"
	KindCoverage      = "coverage"
	KindOrbits        = "orbits"

	OutcomeOK           = "ok"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
	OutcomeNoVisibility = "no_visibility"
	OutcomeCancelled    = "cancelled"
)

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_http_requests_total",
		Help: "Total number of handled API requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "status"})
	requests, err := registerCounterVec(reg, requests, "sim_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_http_request_duration_seconds",
		Help:    "API request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route"})
	durations, err = registerHistogramVec(reg, durations, "sim_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_runs_total",
		Help: "Total number of simulation runs, labeled by kind and outcome.",
	}, []string{"kind", "outcome"})
	runs, err = registerCounterVec(reg, runs, "sim_runs_total")
	if err != nil {
		return nil, err
	}

	runDurations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_run_duration_seconds",
		Help:    "Wall-clock duration of simulation runs in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"kind"})
	runDurations, err = registerHistogramVec(reg, runDurations, "sim_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:      gatherer,
		HTTPRequests:  requests,
		HTTPDurations: durations,
		Runs:          runs,
		RunDurations:  runDurations,
	}, nil
}

// InstrumentHandler wraps next so request counts and durations are recorded
// under the given route label.
func (c *SimCollector) InstrumentHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if c == nil {
			return
		}
		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// RecordRun records the outcome and duration of one simulation run.
func (c *SimCollector) RecordRun(kind, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.Runs != nil {
		c.Runs.WithLabelValues(kind, outcome).Inc()
	}
	if c.RunDurations != nil {
		c.RunDurations.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
