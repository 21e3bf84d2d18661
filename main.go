package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/netutil"

	"opscore/internal/cache"
	"opscore/internal/config"
	"opscore/internal/handler"
	"opscore/internal/logging"
	"opscore/internal/maintenance"
	custommiddleware "opscore/internal/middleware"
	"opscore/internal/monitor"
	"opscore/internal/ratelimit"
	"opscore/internal/requestid"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	level, err := cfg.Logger.InitialLevel()
	if err != nil {
		slog.Error("invalid log level", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: level, MaxEntries: cfg.Logger.MaxEntries})

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("application failed", logging.CategorySystem, map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	slogger := logger.Slog().With(slog.String("category", logging.CategorySystem))

	pathCache, err := cache.New(cache.Config{
		MaxSizePow2:   cfg.Monitor.PathCachePow2,
		MaxPathLength: cfg.Monitor.PathCacheMaxPath,
		TTL:           cfg.Monitor.PathCacheTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create path cache: %w", err)
	}
	defer pathCache.Close()

	mon := monitor.New(monitor.Config{
		SlowRequestThreshold: cfg.Monitor.SlowRequest,
		MaxAvgResponseTime:   cfg.Monitor.MaxAvgResponseTime,
		MaxErrorRate:         cfg.Monitor.MaxErrorRate,
		MinUptime:            cfg.Monitor.MinUptime,
	}, logger, monitor.WithPathCache(pathCache))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := monitor.NewCollector(cfg.Monitor.Namespace, mon, registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics collector: %w", err)
	}

	limiters := ratelimit.NewRegistry()
	for _, profile := range cfg.RateLimit.Profiles() {
		if _, err := limiters.Register(profile); err != nil {
			return fmt.Errorf("failed to register rate limit profile %q: %w", profile.Name, err)
		}
	}
	limit := func(name string) echo.MiddlewareFunc {
		limiter, _ := limiters.Get(name)
		return custommiddleware.RateLimit(limiter, logger, custommiddleware.RateLimitOptions{
			BypassSecret: cfg.RateLimit.BypassSecret,
		})
	}

	ids, err := requestid.New()
	if err != nil {
		return fmt.Errorf("failed to create request id generator: %w", err)
	}

	scheduler := maintenance.NewScheduler(slogger)
	jobs := []maintenance.Job{
		maintenance.SweepJob(cfg.RateLimit.SweepSchedule, limiters, slogger),
		maintenance.RuntimeStatsJob(cfg.Monitor.StatsSchedule, pathCache, logger, cfg.Monitor.SlowRequest),
	}
	for _, job := range jobs {
		if err := scheduler.Add(ctx, job); err != nil {
			return fmt.Errorf("failed to schedule maintenance: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = echo.ExtractIPDirect()
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: ids.Next}))
	e.Use(custommiddleware.Monitor(mon, logger))

	api := e.Group("/api", limit(config.ProfileGeneral))
	handler.NewIntake(logger).Register(api, limit(config.ProfileContact), limit(config.ProfileBooking))

	guard := custommiddleware.AdminGuard(cfg.Admin.Secret, logger)
	if cfg.Admin.Secret == "" {
		logger.Warn("ADMIN_SECRET is not set, admin routes are unprotected", logging.CategorySecurity, nil)
	}

	admin := e.Group("/admin", custommiddleware.AdminRateLimit(&cfg.Admin, slogger))
	handler.New(mon, logger, collector.Handler()).Register(admin, guard)

	if cfg.Admin.PprofEnabled {
		pprofGroup := e.Group("/debug/pprof", guard)
		custommiddleware.RegisterPprof(pprofGroup)
		logger.Info("pprof endpoints enabled", logging.CategorySystem, map[string]any{"path": "/debug/pprof/*"})
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener: %w", err)
	}
	if cfg.Server.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.Server.MaxConnections)
	}

	server := &http.Server{
		Handler:        e,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 14, // 16KB
	}

	logger.Info("Server started", logging.CategorySystem, map[string]any{
		"addr":            addr,
		"max_connections": cfg.Server.MaxConnections,
		"instance_id":     mon.InstanceID(),
		"log_level":       logger.Level().String(),
		"rate_limits":     limiters.Names(),
	})

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", logging.CategorySystem, map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server", logging.CategorySystem, nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
