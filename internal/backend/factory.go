package backend

import (
	"context"
	"fmt"
	"log/slog"

	"gastos/internal/adapters"
	"gastos/internal/amqp"
	"gastos/internal/services"
	"gastos/internal/storage"
	"gastos/internal/store/flatfile"
	"gastos/internal/store/form"
	"gastos/internal/store/google"
	"gastos/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger.With("component", "backend")}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return &Result{Store: memory.New()}, nil
	case FileBackend:
		return f.createFileBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case FormBackend:
		return f.createFormBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileBackend(config Config) (*Result, error) {
	s, err := flatfile.New(config.DataFile, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file backend: %w", err)
	}
	f.logger.Info("Initialized file backend", "path", config.DataFile)
	return &Result{Store: s}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := google.New(ctx, config.Sheets, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	// A fresh spreadsheet gets the header row; failure here is not fatal,
	// the first append will surface a real access problem.
	if err := cli.EnsureHeader(ctx); err != nil {
		f.logger.Warn("Could not verify sheet header", "error", err)
	}
	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.Sheets.SpreadsheetID,
		"timestamped", config.Sheets.Timestamped)
	return &Result{Store: cli}, nil
}

func (f *DefaultFactory) createFormBackend(config Config) (*Result, error) {
	s, err := form.New(config.Form, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize form backend: %w", err)
	}
	f.logger.Info("Initialized form backend", "verify", config.Form.Verify)
	return &Result{Store: s}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional: without it rows stay pending until the worker's sweep.
	var publisher services.Publisher
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without publishing", "error", err)
		} else {
			publisher = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	expenseService := services.NewExpenseService(sqliteRepo, publisher, f.logger)
	adapter := adapters.NewSQLiteAdapter(sqliteRepo, expenseService)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &Result{
		Store:   adapter,
		Cleanup: expenseService.Close,
	}, nil
}
