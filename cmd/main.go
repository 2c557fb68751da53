package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/http/api"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/repository"
	app "github.com/nourdesoukizz/Cozmx-fencing/internal/app"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/config"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/bracket"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/rating"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := initLogger(cfg); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "touchrank exited", logger.Error(err))
		os.Exit(1)
	}
}

// initLogger installs the global logger in the configured format and level.
func initLogger(cfg *config.Config) error {
	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return err
	}
	if err := logger.InitWith(os.Stdout, format); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// run serves the API until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService opens the configured store and builds the rating service on it.
func newService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	store, err := repository.Open(ctx, repository.Config{
		Driver:      cfg.StorageDriver,
		Path:        cfg.StoragePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageDriver, err)
	}

	return app.New(
		app.WithLogger(logger.Get().Named("service")),
		app.WithStore(store),
		app.WithWorkerCount(cfg.PersistWorkers),
		app.WithQueueSize(cfg.PersistQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithSolverOptions(
			rating.WithPriorWeight(cfg.PriorWeight),
			rating.WithTolerance(cfg.Tolerance),
			rating.WithMaxIterations(cfg.MaxIterations),
		),
		app.WithSimulatorOptions(
			bracket.WithWorkers(cfg.SimulationWorkers),
			bracket.WithDefaultTrials(cfg.DefaultSimulations),
			bracket.WithMaxTrials(cfg.MaxSimulations),
		),
	), nil
}

// newHandler builds the API router for svc.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	server := api.NewServer(svc,
		api.WithLogger(logger.Get().Named("http")),
		api.WithMaxRequestBytes(cfg.MaxRequestBytes),
		api.WithSimulateLimit(cfg.SimulateRate, cfg.SimulateBurst),
		api.WithAllowedOrigins(cfg.AllowedOrigins...),
	)
	return server.Routes(ctx)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics refreshes the event, competitor and queue gauges.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if n, ok := stats["events"].(int); ok {
		metrics.UpdateEvents(n)
	}
	if n, ok := stats["competitors"].(int); ok {
		metrics.UpdateCompetitors(n)
	}
	if n, ok := stats["workerCount"].(int); ok {
		metrics.UpdatePersistWorkers(n)
	}
}
