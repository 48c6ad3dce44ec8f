package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/time/rate"

	"github.com/signalsfoundry/leosim/coverage"
	"github.com/signalsfoundry/leosim/internal/api"
	"github.com/signalsfoundry/leosim/internal/logging"
	"github.com/signalsfoundry/leosim/internal/observability"
	"github.com/signalsfoundry/leosim/scenario"
	"github.com/signalsfoundry/leosim/timectrl"
)

func main() {
	addr := flag.String("addr", ":8080", "TCP address the simulation API listens on")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	presetPath := flag.String("presets", "configs/presets.json", "Path to a JSON file of scenario presets")
	gridPath := flag.String("population-grid", "", "Optional NetCDF population grid for coverage scoring")
	rateLimit := flag.Float64("rate-limit", 0, "Maximum requests per second across all routes (0 disables limiting)")
	runTimeout := flag.Duration("run-timeout", 30*time.Second, "Upper bound on a single simulation run")
	tickInterval := flag.Duration("tick", 100*time.Millisecond, "Animation clock tick interval")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}
	shell, err := observability.NewConstellationCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise constellation collector", logging.Err(err))
		os.Exit(1)
	}

	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	store := scenario.NewStore()
	store.Subscribe(func(scenario.Event) { shell.SetPresetCount(store.Count()) })
	loadPresets(log, store, *presetPath)

	clock := timectrl.NewAnimationClock(timectrl.DefaultStepRadPerSecond)
	clock.AddListener(shell.SetAnimationOffset)
	clockCtx, stopClock := context.WithCancel(ctx)
	defer stopClock()
	go clock.Run(clockCtx, *tickInterval)

	opts := []api.Option{
		api.WithMetrics(collector, shell),
		api.WithRunTimeout(*runTimeout),
	}
	if *rateLimit > 0 {
		opts = append(opts, api.WithRateLimit(rate.Limit(*rateLimit), int(*rateLimit)+1))
	}
	if grid := loadPopulationGrid(log, *gridPath); grid != nil {
		opts = append(opts, api.WithPopulationGrid(grid))
	}

	server := api.NewServer(store, clock, log, opts...)
	srv := &http.Server{
		Addr:    *addr,
		Handler: server.Handler(),
	}

	log.Info(ctx, "starting simulation API server", logging.String("addr", *addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "API server exited", logging.Err(err))
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down API server")
	stopClock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

// loadPresets seeds the store from a preset file. A missing or broken file
// is logged and skipped; the server still runs, just without presets.
func loadPresets(log logging.Logger, store *scenario.Store, path string) {
	if path == "" {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Warn(context.Background(), "skipping preset load", logging.String("path", path), logging.Err(err))
		return
	}
	defer f.Close()

	manifest, err := scenario.LoadPresets(store, f)
	if err != nil {
		log.Warn(context.Background(), "failed to load presets", logging.String("path", path), logging.Err(err))
		return
	}

	log.Info(context.Background(), "loaded scenario presets",
		logging.String("path", path),
		logging.Int("count", len(manifest.Names)),
	)
}

// loadPopulationGrid reads the optional NetCDF grid. Coverage runs report
// population reach only when it loads.
func loadPopulationGrid(log logging.Logger, path string) *coverage.PopulationGrid {
	if path == "" {
		return nil
	}

	grid, err := coverage.LoadPopulationGrid(path)
	if err != nil {
		log.Warn(context.Background(), "skipping population grid", logging.String("path", path), logging.Err(err))
		return nil
	}

	log.Info(context.Background(), "loaded population grid",
		logging.String("path", path),
		logging.Float64("total_population", grid.TotalPopulation()),
	)
	return grid
}
