// Package backend builds the configured store.
package backend

import (
	"context"

	"gastos/internal/store"
)

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// Result contains the store and an optional cleanup function
type Result struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Type represents the type of backend
type Type string

const (
	MemoryBackend Type = "memory"
	FileBackend   Type = "file"
	SheetsBackend Type = "sheets"
	FormBackend   Type = "form"
	SQLiteBackend Type = "sqlite"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, FileBackend, SheetsBackend, FormBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{MemoryBackend, FileBackend, SheetsBackend, FormBackend, SQLiteBackend}
}
