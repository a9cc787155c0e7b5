// Package adapters joins the SQLite repository and the expense service into
// a single store for the HTTP layer.
package adapters

import (
	"context"

	"gastos/internal/core"
	"gastos/internal/services"
	"gastos/internal/storage"
	"gastos/internal/store"
)

var _ store.Store = (*SQLiteAdapter)(nil)

// SQLiteAdapter writes through the expense service, so every insert is
// announced to the worker, and reads and probes the repository directly.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.ExpenseService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.ExpenseService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

func (a *SQLiteAdapter) Name() string { return a.storage.Name() }

// Append implements store.Appender
func (a *SQLiteAdapter) Append(ctx context.Context, e core.Expense) (string, error) {
	return a.service.Append(ctx, e)
}

// Load implements store.Loader
func (a *SQLiteAdapter) Load(ctx context.Context) ([]core.Expense, error) {
	return a.storage.Load(ctx)
}

// Ping reports whether the database answers.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}
