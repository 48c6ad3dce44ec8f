// Package api implements the HTTP surface of the simulator: constellation
// snapshots, link-budget and mission runs, ISL topology, coverage scoring,
// preset management, and the animation clock.
package api

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/signalsfoundry/leosim/coverage"
	"github.com/signalsfoundry/leosim/internal/logging"
	"github.com/signalsfoundry/leosim/internal/observability"
	"github.com/signalsfoundry/leosim/scenario"
	"github.com/signalsfoundry/leosim/timectrl"
)

// Server wires the simulation core to HTTP handlers. All state lives in the
// injected collaborators; the server itself is stateless and safe for
// concurrent use.
type Server struct {
	store *scenario.Store
	clock *timectrl.AnimationClock
	log   logging.Logger

	metrics *observability.SimCollector
	shell   *observability.ConstellationCollector
	grid    *coverage.PopulationGrid
	limiter *rate.Limiter

	runTimeout time.Duration
}

// Option tweaks server construction.
type Option func(*Server)

// WithMetrics attaches the Prometheus collectors.
func WithMetrics(sim *observability.SimCollector, shell *observability.ConstellationCollector) Option {
	return func(s *Server) {
		s.metrics = sim
		s.shell = shell
	}
}

// WithPopulationGrid enables population scoring on the coverage endpoint.
func WithPopulationGrid(g *coverage.PopulationGrid) Option {
	return func(s *Server) { s.grid = g }
}

// WithRateLimit bounds the request rate across all API routes.
func WithRateLimit(perSecond rate.Limit, burst int) Option {
	return func(s *Server) { s.limiter = rate.NewLimiter(perSecond, burst) }
}

// WithRunTimeout bounds how long a single simulation run may take.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Server) { s.runTimeout = d }
}

// NewServer constructs a Server around a preset store and animation clock.
func NewServer(store *scenario.Store, clock *timectrl.AnimationClock, log logging.Logger, opts ...Option) *Server {
	if log == nil {
		log = logging.Noop()
	}
	s := &Server{
		store:      store,
		clock:      clock,
		log:        log,
		runTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed and instrumented API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /healthz", http.HandlerFunc(s.handleHealth))
	s.route(mux, "GET /api/v1/constellation", http.HandlerFunc(s.handleConstellation))
	s.route(mux, "GET /api/v1/orbits", http.HandlerFunc(s.handleOrbits))
	s.route(mux, "POST /api/v1/linkbudget", http.HandlerFunc(s.handleLinkBudget))
	s.route(mux, "POST /api/v1/mission", http.HandlerFunc(s.handleMission))
	s.route(mux, "POST /api/v1/isl", http.HandlerFunc(s.handleISL))
	s.route(mux, "POST /api/v1/coverage", http.HandlerFunc(s.handleCoverage))
	s.route(mux, "GET /api/v1/presets", http.HandlerFunc(s.handlePresetList))
	s.route(mux, "POST /api/v1/presets", http.HandlerFunc(s.handlePresetAdd))
	s.route(mux, "GET /api/v1/presets/{name}", http.HandlerFunc(s.handlePresetGet))
	s.route(mux, "DELETE /api/v1/presets/{name}", http.HandlerFunc(s.handlePresetRemove))
	s.route(mux, "GET /api/v1/animation", http.HandlerFunc(s.handleAnimationGet))
	s.route(mux, "POST /api/v1/animation", http.HandlerFunc(s.handleAnimationSet))

	var h http.Handler = mux
	h = s.rateLimited(h)
	h = otelhttp.NewHandler(h, "leosim.api")
	return h
}

// route registers h under the method-qualified pattern, wrapped with the
// request-scoped logger and, when configured, per-route metrics. The metric
// label is the path part of the pattern, so wildcard routes stay bounded.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.Handler) {
	label := pattern
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		label = pattern[i+1:]
	}
	h = s.requestLogging(label, h)
	if s.metrics != nil {
		h = s.metrics.InstrumentHandler(label, h)
	}
	mux.Handle(pattern, h)
}
