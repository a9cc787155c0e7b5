package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"gastos/internal/amqp"
	"gastos/internal/backend"
	"gastos/internal/cli"
	applog "gastos/internal/log"
	"gastos/internal/storage"
	"gastos/internal/worker"
)

func main() {
	cfg, logger := cli.MustLoadConfig(applog.ComponentWorker)

	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Worker configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Pending rows are read from the same database the app writes to.
	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	mirrorConfig, err := backend.MirrorFromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", "error", err)
		os.Exit(1)
	}
	mirror, err := backend.NewFactory(logger).CreateBackend(context.Background(), mirrorConfig)
	if err != nil {
		logger.Error("Failed to create mirror backend", "error", err, "backend", cfg.MirrorBackend)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
		if err := mirror.Close(); err != nil {
			logger.Error("Mirror cleanup error", "error", err)
		}
		if err := sqliteRepo.Close(); err != nil {
			logger.Error("SQLite close error", "error", err)
		}
	})

	syncWorker := worker.NewSyncWorker(sqliteRepo, mirror.Store, cfg.SyncBatchSize, logger)
	sweeper := worker.NewSweeper(syncWorker, worker.SweeperConfig{Interval: cfg.SyncInterval}, logger)

	logger.Info("Starting gastos-worker",
		"mirror", cfg.MirrorBackend,
		"queue", cfg.AMQPQueue,
		"batch_size", cfg.SyncBatchSize,
		"sync_interval", cfg.SyncInterval.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeExpenseRecorded(gctx, syncWorker.HandleRecorded)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
