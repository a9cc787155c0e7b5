// Package cli provides the process bootstrap shared by cmd/gastos,
// cmd/gastos-worker and cmd/gastosctl.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gastos/internal/budget"
	"gastos/internal/config"
	applog "gastos/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the default logger.
func SetupLogger(cfg *config.Config, component string, out io.Writer) *slog.Logger {
	lc := applog.DefaultConfig()
	lc.Component = component
	if out != nil {
		lc.Output = out
	}
	if cfg != nil {
		if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
			lc.Level = level
		}
		lc.Format = cfg.LogFormat
	}
	logger := applog.New(lc)
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads the .env file and the environment, then validates.
func LoadConfig() (*config.Config, error) {
	LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadConfig is LoadConfig that exits the process on failure, logging
// through a bootstrap logger.
func MustLoadConfig(component string) (*config.Config, *slog.Logger) {
	cfg, err := LoadConfig()
	if err != nil {
		logger := SetupLogger(nil, component, os.Stderr)
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, SetupLogger(cfg, component, nil)
}

// LoadBudgets reads the budget table named by BUDGET_FILE, or the built-in
// defaults when none is set.
func LoadBudgets(cfg *config.Config) (budget.Table, error) {
	table, err := budget.Load(cfg.BudgetFile)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	return table, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs once, bounded by timeout, before the returned done channel closes.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ends.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
