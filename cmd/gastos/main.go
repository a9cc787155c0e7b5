package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gastos/internal/auth"
	"gastos/internal/backend"
	"gastos/internal/cache"
	"gastos/internal/cli"
	apphttp "gastos/internal/http"
	applog "gastos/internal/log"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/services"
)

func main() {
	cfg, logger := cli.MustLoadConfig(applog.ComponentApp)

	budgets, err := cli.LoadBudgets(cfg)
	if err != nil {
		logger.Error("Failed to load budgets", "error", err, "path", cfg.BudgetFile)
		os.Exit(1)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	reporter := services.NewReporter(result.Store, budgets, cfg.CacheTTL, logger)
	recorder := services.NewRecorder(result.Store, logger, reporter.Invalidate)

	cacheManager := cache.NewManager(logger)
	if c := reporter.Cache(); c != nil {
		cacheManager.Register(c)
		cacheManager.StartCleanup(5 * time.Minute)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Recorder:       recorder,
		Reporter:       reporter,
		Probe:          result.Store,
		Gate:           auth.NewGate(cfg.AppPassword, cfg.SessionSecret, cfg.SecureCookies, logger),
		RateLimit:      ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute},
		TrustedProxies: cfg.TrustedProxies,
		Location:       cfg.Location(),
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting gastos server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"auth_enabled", cfg.AppPassword != "",
		"cache_ttl", cfg.CacheTTL.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
