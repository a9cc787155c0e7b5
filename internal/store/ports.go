// Package store defines the outbound ports every backing store implements.
package store

import (
	"context"

	"gastos/internal/core"
)

// Ports for outbound adapters.
type (
	// Appender delivers one record as one new row. Implementations never
	// rewrite rows that are already stored.
	Appender interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// Loader returns the whole dataset as currently stored.
	Loader interface {
		Load(ctx context.Context) ([]core.Expense, error)
	}

	Store interface {
		Appender
		Loader
	}

	// Named is implemented by stores that can report which backend they are.
	Named interface {
		Name() string
	}
)

// NameOf returns the backend name of s, or "unknown".
func NameOf(s any) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return "unknown"
}
