package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gastos/internal/core"
	"gastos/internal/metrics"
	"gastos/internal/store"
)

// ErrStoreWrite wraps every failure of the backing store during Record.
var ErrStoreWrite = errors.New("store write failed")

// Recorder validates a submission and delivers it to the backing store.
type Recorder struct {
	store   store.Appender
	backend string
	onWrite []func()
	logger  *slog.Logger
}

// NewRecorder builds a Recorder. onWrite callbacks run after every
// successful append; the reporter's Invalidate goes there.
func NewRecorder(s store.Appender, logger *slog.Logger, onWrite ...func()) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   s,
		backend: store.NameOf(s),
		onWrite: onWrite,
		logger:  logger.With("component", "recorder"),
	}
}

// Backend names the store records go to.
func (r *Recorder) Backend() string { return r.backend }

// Record validates e and appends it. A validation error wraps one of the
// core sentinel errors and leaves the store untouched; a store failure wraps
// ErrStoreWrite.
func (r *Recorder) Record(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		metrics.RecordExpense(r.backend, metrics.ResultInvalid)
		r.logger.InfoContext(ctx, "Expense rejected", "error", err)
		return "", err
	}

	ref, err := r.store.Append(ctx, e)
	if err != nil {
		metrics.RecordExpense(r.backend, metrics.ResultError)
		r.logger.ErrorContext(ctx, "Failed to append expense",
			"backend", r.backend,
			"error", err,
			"date", e.Date.String(),
			"amount_cents", e.Amount.Cents)
		return "", fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	for _, fn := range r.onWrite {
		fn()
	}
	metrics.RecordExpense(r.backend, metrics.ResultOK)
	r.logger.InfoContext(ctx, "Expense recorded",
		"backend", r.backend,
		"ref", ref,
		"date", e.Date.String(),
		"category", string(e.Category),
		"amount_cents", e.Amount.Cents)
	return ref, nil
}
