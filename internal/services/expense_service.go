package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"gastos/internal/core"
	"gastos/internal/store"
)

type (
	expenseRepository interface {
		Insert(ctx context.Context, e core.Expense) (int64, error)
		Load(ctx context.Context) ([]core.Expense, error)
		Close() error
	}

	// Publisher announces rows that need mirroring.
	Publisher interface {
		PublishExpenseRecorded(ctx context.Context, id int64) error
		Close() error
	}
)

var _ store.Store = (*ExpenseService)(nil)

// ExpenseService stores expenses in SQLite and announces them over AMQP so
// the worker can mirror them to a spreadsheet.
type ExpenseService struct {
	storage   expenseRepository
	publisher Publisher
	logger    *slog.Logger
}

// NewExpenseService builds the service; publisher may be nil.
func NewExpenseService(storage expenseRepository, publisher Publisher, logger *slog.Logger) *ExpenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpenseService{
		storage:   storage,
		publisher: publisher,
		logger:    logger.With("component", "expense_service"),
	}
}

func (s *ExpenseService) Name() string { return "sqlite" }

// Append saves the expense locally, then publishes. The row is durable once
// the insert returns, so a publish failure is logged and not returned; the
// worker's sweep picks the row up later.
func (s *ExpenseService) Append(ctx context.Context, e core.Expense) (string, error) {
	if s.storage == nil {
		return "", errors.New("expense storage not configured")
	}
	id, err := s.storage.Insert(ctx, e)
	if err != nil {
		return "", fmt.Errorf("save expense: %w", err)
	}
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping recorded message", "id", id)
	} else if err := s.publisher.PublishExpenseRecorded(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish recorded message", "id", id, "error", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *ExpenseService) Load(ctx context.Context) ([]core.Expense, error) {
	if s.storage == nil {
		return nil, errors.New("expense storage not configured")
	}
	return s.storage.Load(ctx)
}

// Close closes both storage and publisher.
func (s *ExpenseService) Close() error {
	var errs []error
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}
