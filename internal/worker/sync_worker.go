// Package worker mirrors expenses stored in SQLite to the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gastos/internal/amqp"
	"gastos/internal/metrics"
	"gastos/internal/storage"
	"gastos/internal/store"
)

type repository interface {
	GetExpense(ctx context.Context, id int64) (storage.Record, error)
	PendingSync(ctx context.Context, limit int) ([]storage.Record, error)
	MarkSynced(ctx context.Context, id int64, ref string) error
	MarkSyncError(ctx context.Context, id int64, cause string) error
}

// SyncWorker copies expenses from SQLite to a mirror store.
type SyncWorker struct {
	storage   repository
	mirror    store.Appender
	batchSize int
	logger    *slog.Logger

	// The consumer and the sweep may reach the same row at once.
	locks rowLocks
}

func NewSyncWorker(storage repository, mirror store.Appender, batchSize int, logger *slog.Logger) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.With("component", "sync_worker", "mirror", store.NameOf(mirror)),
	}
}

// HandleRecorded is an amqp.Handler. Rows already mirrored are acknowledged
// without writing them twice.
func (w *SyncWorker) HandleRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage, redelivered bool) error {
	w.logger.InfoContext(ctx, "Processing recorded message", "id", msg.ID, "redelivered", redelivered)

	rec, err := w.storage.GetExpense(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.WarnContext(ctx, "Recorded message for unknown expense, dropping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	if rec.SyncedAt != nil {
		w.logger.DebugContext(ctx, "Expense already mirrored", "id", msg.ID, "ref", rec.SyncRef)
		return nil
	}
	return w.sync(ctx, rec)
}

// ProcessPendingExpenses mirrors up to one batch of unsynced rows. It is the
// fallback for lost messages and for rows recorded while the broker was down.
// It returns the number of rows mirrored.
func (w *SyncWorker) ProcessPendingExpenses(ctx context.Context) (int, error) {
	pending, err := w.storage.PendingSync(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending expenses", "count", len(pending))
	synced := 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.sync(ctx, rec); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync expense", "id", rec.ID, "error", err)
			continue
		}
		synced++
	}
	w.logger.InfoContext(ctx, "Pending sweep completed",
		"total", len(pending),
		"synced", synced,
		"errors", len(pending)-synced)
	return synced, nil
}

// sync mirrors one row. The row is re-read under its lock so a row mirrored
// by a concurrent pass is skipped.
func (w *SyncWorker) sync(ctx context.Context, rec storage.Record) error {
	unlock := w.locks.lock(rec.ID)
	defer unlock()

	fresh, err := w.storage.GetExpense(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	if fresh.SyncedAt != nil {
		w.logger.DebugContext(ctx, "Expense already mirrored", "id", rec.ID, "ref", fresh.SyncRef)
		return nil
	}
	rec = fresh

	ref, err := w.mirror.Append(ctx, rec.Expense)
	metrics.RecordSync(err)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, rec.ID, err.Error()); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", "id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	// The mirror write already happened; a bookkeeping failure only means the
	// row may be sent again.
	if err := w.storage.MarkSynced(ctx, rec.ID, ref); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark as synced", "id", rec.ID, "error", err)
	}

	w.logger.InfoContext(ctx, "Expense mirrored",
		"id", rec.ID,
		"ref", ref,
		"amount_cents", rec.Expense.Amount.Cents)
	return nil
}

// rowLocks is a set of per-row mutexes, dropped once nobody holds them.
type rowLocks struct {
	mu   sync.Mutex
	held map[int64]*rowLock
}

type rowLock struct {
	sync.Mutex
	waiters int
}

func (l *rowLocks) lock(id int64) func() {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[int64]*rowLock)
	}
	rl, ok := l.held[id]
	if !ok {
		rl = &rowLock{}
		l.held[id] = rl
	}
	rl.waiters++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.waiters--
		if rl.waiters == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
