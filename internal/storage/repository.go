package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"

	"gastos/internal/core"
	"gastos/internal/store"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

var ErrNotFound = errors.New("expense not found")

var _ store.Store = (*SQLiteRepository)(nil)

var expenseColumns = []string{
	"id", "created_at", "date", "category", "description", "amount_cents",
	"payer", "payment_method", "synced_at", "sync_ref", "sync_error", "sync_attempts",
}

// Record is a stored expense together with its sync bookkeeping.
type Record struct {
	ID        int64
	Expense   core.Expense
	CreatedAt time.Time
	SyncedAt  *time.Time
	SyncRef   string
	SyncError string
	Attempts  int
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer connection keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Name() string { return "sqlite" }

// Ping checks the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert stores e and returns its row id.
func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}
	query := sq.Insert("expenses").
		Columns("created_at", "date", "category", "description", "amount_cents", "payer", "payment_method").
		Values(r.now().UTC().Format(timeLayout), e.Date.String(), string(e.Category), e.Description,
			e.Amount.Cents, string(e.Payer), string(e.Payment))

	res, err := query.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"amount_cents", e.Amount.Cents,
		"category", string(e.Category),
		"date", e.Date.String())
	return id, nil
}

// Append implements store.Appender.
func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) (string, error) {
	id, err := r.Insert(ctx, e)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// Load implements store.Loader, oldest date first.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Expense, error) {
	records, err := r.query(ctx, sq.Select(expenseColumns...).From("expenses").OrderBy("date ASC", "id ASC"))
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	out := make([]core.Expense, len(records))
	for i, rec := range records {
		out[i] = rec.Expense
	}
	return out, nil
}

// GetExpense retrieves a single expense by ID.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (Record, error) {
	records, err := r.query(ctx, sq.Select(expenseColumns...).From("expenses").Where(sq.Eq{"id": id}))
	if err != nil {
		return Record{}, fmt.Errorf("get expense by id: %w", err)
	}
	if len(records) == 0 {
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return records[0], nil
}

// PendingSync returns up to limit expenses not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]Record, error) {
	q := sq.Select(expenseColumns...).From("expenses").
		Where(sq.Eq{"synced_at": nil}).
		OrderBy("id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	records, err := r.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	return records, nil
}

// MarkSynced marks an expense as successfully mirrored at ref.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64, ref string) error {
	q := sq.Update("expenses").
		Set("synced_at", r.now().UTC().Format(timeLayout)).
		Set("sync_ref", ref).
		Set("sync_error", nil).
		Where(sq.Eq{"id": id})
	if err := r.exec(ctx, q, id); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as synced", "id", id, "ref", ref)
	return nil
}

// MarkSyncError records a failed mirror attempt.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64, cause string) error {
	q := sq.Update("expenses").
		Set("sync_error", cause).
		Set("sync_attempts", sq.Expr("sync_attempts + 1")).
		Where(sq.Eq{"id": id})
	if err := r.exec(ctx, q, id); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id, "error", cause)
	return nil
}

func (r *SQLiteRepository) exec(ctx context.Context, q sq.UpdateBuilder, id int64) error {
	res, err := q.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, q sq.SelectBuilder) ([]Record, error) {
	rows, err := q.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec                             Record
		createdAt, date, category, desc string
		payer, payment                  string
		amount                          int64
		syncedAt, syncRef, syncErr      sql.NullString
	)
	if err := rows.Scan(&rec.ID, &createdAt, &date, &category, &desc, &amount,
		&payer, &payment, &syncedAt, &syncRef, &syncErr, &rec.Attempts); err != nil {
		return Record{}, fmt.Errorf("scan expense: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return Record{}, fmt.Errorf("expense %d: %w", rec.ID, err)
	}
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if syncedAt.Valid {
		if t, err := time.Parse(timeLayout, syncedAt.String); err == nil {
			rec.SyncedAt = &t
		}
	}
	rec.SyncRef = syncRef.String
	rec.SyncError = syncErr.String
	rec.Expense = core.Expense{
		Timestamp:   rec.CreatedAt,
		Date:        d,
		Category:    core.Category(category),
		Description: desc,
		Amount:      core.Money{Cents: amount},
		Payer:       core.Payer(payer),
		Payment:     core.PaymentMethod(payment),
	}
	return rec, nil
}
