// Package flatfile keeps expenses in a local CSV file with the fixed header.
package flatfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gastos/internal/core"
	"gastos/internal/store"
	"gastos/internal/store/tabular"
)

var _ store.Store = (*Store)(nil)

// Appends from every Store in the process are serialised, so two stores
// pointed at the same path never interleave lines.
var fileMu sync.Mutex

type Store struct {
	path   string
	logger *slog.Logger
}

func New(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("flatfile: empty path")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return &Store{path: path, logger: logger.With("component", "flatfile_store")}, nil
}

func (s *Store) Name() string { return "file" }

// Append writes exactly one CSV line at the end of the file. The header is
// written first when the file is new or empty.
func (s *Store) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fileMu.Lock()
	defer fileMu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", s.path, err)
	}
	rows := [][]string{tabular.EncodeRow(e)}
	if info.Size() == 0 {
		rows = append([][]string{tabular.Header}, rows...)
	}
	data, err := tabular.EncodeCSV(rows...)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("append to %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("sync %s: %w", s.path, err)
	}
	return fmt.Sprintf("%s@%d", filepath.Base(s.path), info.Size()), nil
}

// Load reads the whole file. A missing file is an empty dataset.
func (s *Store) Load(ctx context.Context) ([]core.Expense, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	dec, err := tabular.ParseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if dec.Skipped > 0 {
		s.logger.WarnContext(ctx, "Skipped unparseable rows", "path", s.path, "skipped", dec.Skipped)
	}
	return dec.Records, nil
}
