package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/storage"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []int64
	err       error
	closed    bool
}

func (p *fakePublisher) PublishExpenseRecorded(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, id)
	return nil
}

func (p *fakePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "gastos.db"))
	require.NoError(t, err)
	return repo
}

func TestExpenseServiceAppendPublishes(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewExpenseService(newRepo(t), pub, nil)
	t.Cleanup(func() { _ = svc.Close() })

	ref, err := svc.Append(ctx, validExpense())
	require.NoError(t, err)
	assert.Equal(t, "1", ref)
	assert.Equal(t, []int64{1}, pub.published)

	recs, err := svc.Load(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Equal(validExpense()))
	assert.Equal(t, "sqlite", svc.Name())
}

func TestExpenseServicePublishFailureIsNotReturned(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc := NewExpenseService(newRepo(t), pub, nil)
	t.Cleanup(func() { _ = svc.Close() })

	_, err := svc.Append(ctx, validExpense())
	require.NoError(t, err)

	recs, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestExpenseServiceWithoutPublisher(t *testing.T) {
	svc := NewExpenseService(newRepo(t), nil, nil)
	t.Cleanup(func() { _ = svc.Close() })

	_, err := svc.Append(context.Background(), validExpense())
	assert.NoError(t, err)
}

func TestExpenseServiceRejectsInvalid(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewExpenseService(newRepo(t), pub, nil)
	t.Cleanup(func() { _ = svc.Close() })

	e := validExpense()
	e.Amount.Cents = 0
	_, err := svc.Append(context.Background(), e)
	require.Error(t, err)
	assert.Empty(t, pub.published)
}

func TestExpenseServiceClose(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		svc := &ExpenseService{}
		assert.NoError(t, svc.Close())
	})

	t.Run("closes publisher", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := NewExpenseService(newRepo(t), pub, nil)
		require.NoError(t, svc.Close())
		assert.True(t, pub.closed)
	})

	t.Run("missing storage", func(t *testing.T) {
		svc := NewExpenseService(nil, nil, nil)
		_, err := svc.Append(context.Background(), validExpense())
		assert.Error(t, err)
	})
}
