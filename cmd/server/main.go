/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the court booking API server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (config.yaml, .env, environment)
  2. Build the zap logger
  3. Open the SQLite store (migrates the schema)
  4. Connect the report cache (Redis or in-process)
  5. Register Prometheus collectors
  6. Build the engine with metrics and report invalidation as observers
  7. Seed demo data when enabled
  8. Start the HTTP server and the report warmer

COMMAND-LINE FLAGS:
  -config  Path to a YAML config file (default: search ./config.yaml, ./configs)
  -db      Override database.path; ":memory:" for an in-memory database
  -port    Override http.port

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (http.shutdown_timeout)
  3. Stop the warmer, close cache and database
  4. Exit

SEE ALSO:
  - config/config.go: settings and environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/fthliqml/badminton-booking-system-api/api"
	"github.com/fthliqml/badminton-booking-system-api/booking"
	"github.com/fthliqml/badminton-booking-system-api/cache"
	"github.com/fthliqml/badminton-booking-system-api/config"
	"github.com/fthliqml/badminton-booking-system-api/logging"
	"github.com/fthliqml/badminton-booking-system-api/metrics"
	"github.com/fthliqml/badminton-booking-system-api/reporting"
	"github.com/fthliqml/badminton-booking-system-api/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config file")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Environment))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clock := booking.SystemClock{Location: loc}

	store, err := sqlite.Open(cfg.Database.Path, sqlite.Options{BusyTimeout: cfg.Database.BusyTimeout})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	logger.Info("database ready", zap.String("path", cfg.Database.Path))

	reportCache, err := cache.New(cache.Options{Driver: cfg.Cache.Driver, RedisURL: cfg.Cache.RedisURL}, logger)
	if err != nil {
		return err
	}
	defer reportCache.Close()

	reports := reporting.New(store, reporting.Options{
		Cache:  reportCache,
		TTL:    cfg.Cache.ReportTTL,
		Clock:  clock,
		Logger: logger,
	})
	observers := []booking.Observer{reports}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
		observers = append(observers, m)
	}

	engine := booking.NewEngine(store, booking.Options{
		Clock:     clock,
		Logger:    logger,
		Observers: observers,
	})

	if cfg.Seed.Enabled {
		if _, err := api.SeedDemo(context.Background(), engine, logger); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	handler := api.NewHandler(engine, api.Options{
		Reports:        reports,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		Logger:         logger,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		AllowSeed:      cfg.Seed.Enabled,
		Checks: map[string]api.Check{
			"database": store.Ping,
			"cache":    reportCache.Ping,
		},
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	warmer := reporting.NewWarmer(reports, cfg.Cache.ReportTTL/2)
	warmer.Start()
	defer warmer.Stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
