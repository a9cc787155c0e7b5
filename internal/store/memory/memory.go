package memory

import (
	"context"
	"fmt"
	"sync"

	"gastos/internal/core"
	"gastos/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items []core.Expense
	// LoadErr, when set, is returned by Load. Used to exercise read failures.
	LoadErr error
}

func New(seed ...core.Expense) *Store {
	return &Store{items: append([]core.Expense(nil), seed...)}
}

// Append stores the expense and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Load returns a copy of every stored expense in insertion order.
func (s *Store) Load(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return append([]core.Expense(nil), s.items...), nil
}

func (s *Store) Name() string { return "memory" }

// Len reports how many records are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
