package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/budget"
	"gastos/internal/core"
	"gastos/internal/report"
	"gastos/internal/store/memory"
)

// countingLoader counts loads and can block them until release is closed.
type countingLoader struct {
	inner   *memory.Store
	loads   atomic.Int32
	release chan struct{}
}

func (l *countingLoader) Load(ctx context.Context) ([]core.Expense, error) {
	l.loads.Add(1)
	if l.release != nil {
		<-l.release
	}
	return l.inner.Load(ctx)
}

var may2024 = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func TestReporterSummary(t *testing.T) {
	s := memory.New(validExpense())
	r := NewReporter(s, budget.Default(), time.Minute, nil)

	sum := r.Summary(context.Background(), report.ScopeMonth, may2024)
	assert.False(t, sum.Unavailable)
	assert.Equal(t, int64(4550), sum.Total.Cents)
	assert.Equal(t, 1, sum.Count)
}

func TestReporterUnavailable(t *testing.T) {
	s := memory.New(validExpense())
	s.LoadErr = errors.New("sheet not shared")
	r := NewReporter(s, budget.Default(), time.Minute, nil)

	sum := r.Summary(context.Background(), report.ScopeAll, may2024)
	assert.True(t, sum.Unavailable)
	assert.Zero(t, sum.Total.Cents)
}

func TestReporterCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{inner: memory.New(validExpense())}
	r := NewReporter(loader, budget.Default(), time.Minute, nil)

	_, err := r.Records(ctx)
	require.NoError(t, err)
	_, err = r.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), loader.loads.Load())

	rec := NewRecorder(loader.inner, nil, r.Invalidate)
	_, err = rec.Record(ctx, validExpense())
	require.NoError(t, err)

	recs, err := r.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, int32(2), loader.loads.Load())
}

func TestReporterWithoutCache(t *testing.T) {
	loader := &countingLoader{inner: memory.New()}
	r := NewReporter(loader, budget.Default(), 0, nil)
	assert.Nil(t, r.Cache())

	for i := 0; i < 3; i++ {
		_, err := r.Records(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), loader.loads.Load())
}

func TestReporterCollapsesConcurrentLoads(t *testing.T) {
	loader := &countingLoader{inner: memory.New(validExpense()), release: make(chan struct{})}
	r := NewReporter(loader, budget.Default(), time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := r.Records(context.Background())
			assert.NoError(t, err)
			assert.Len(t, recs, 1)
		}()
	}

	require.Eventually(t, func() bool { return loader.loads.Load() == 1 }, time.Second, 5*time.Millisecond)
	// Give the remaining callers time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(loader.release)
	wg.Wait()

	assert.LessOrEqual(t, loader.loads.Load(), int32(2))
}

func TestReporterStaleLoadNotCached(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{inner: memory.New(), release: make(chan struct{})}
	r := NewReporter(loader, budget.Default(), time.Minute, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Records(ctx)
	}()
	require.Eventually(t, func() bool { return loader.loads.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := loader.inner.Append(ctx, validExpense())
	require.NoError(t, err)
	r.Invalidate()
	close(loader.release)
	<-done

	recs, err := r.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
