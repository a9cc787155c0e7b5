package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"gastos/internal/budget"
	"gastos/internal/cache"
	"gastos/internal/core"
	"gastos/internal/metrics"
	"gastos/internal/report"
	"gastos/internal/store"
)

const (
	datasetKey  = "dataset"
	loadTimeout = 30 * time.Second
)

// Reporter loads the dataset through a short-lived cache and aggregates it.
type Reporter struct {
	loader  store.Loader
	backend string
	budgets budget.Table
	cache   *cache.LRUCache[[]core.Expense]
	group   singleflight.Group
	logger  *slog.Logger
}

// NewReporter builds a Reporter. A ttl of zero disables caching.
func NewReporter(loader store.Loader, budgets budget.Table, ttl time.Duration, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reporter{
		loader:  loader,
		backend: store.NameOf(loader),
		budgets: budgets,
		logger:  logger.With("component", "reporter"),
	}
	if ttl > 0 {
		r.cache = cache.NewLRUCache[[]core.Expense](1, ttl)
	}
	return r
}

// Cache exposes the dataset cache for registration with a cache.Manager.
func (r *Reporter) Cache() cache.Cleaner {
	if r.cache == nil {
		return nil
	}
	return r.cache
}

// Invalidate drops the cached dataset. Loads already in flight will not
// repopulate the cache.
func (r *Reporter) Invalidate() {
	if r.cache != nil {
		r.cache.Purge()
	}
	r.group.Forget(datasetKey)
}

// Records returns the whole dataset. Concurrent misses share one load.
func (r *Reporter) Records(ctx context.Context) ([]core.Expense, error) {
	if r.cache != nil {
		if recs, ok := r.cache.Get(datasetKey); ok {
			metrics.CacheLookup(true)
			return recs, nil
		}
		metrics.CacheLookup(false)
	}

	var gen uint64
	if r.cache != nil {
		gen = r.cache.Generation()
	}
	v, err, _ := r.group.Do(datasetKey, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		start := time.Now()
		recs, err := r.loader.Load(loadCtx)
		metrics.ObserveLoad(r.backend, err, time.Since(start))
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			r.cache.SetIfGeneration(datasetKey, recs, gen)
		}
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.Expense), nil
}

// Summary never fails: an unreadable store yields a summary flagged
// Unavailable and the cause is logged.
func (r *Reporter) Summary(ctx context.Context, scope report.Scope, now time.Time) report.Summary {
	recs, err := r.Records(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load expenses", "backend", r.backend, "error", err)
		return report.Summary{Scope: scope, Unavailable: true}
	}
	return report.Build(recs, r.budgets, scope, now)
}
