// Package metrics exposes the prometheus collectors of the app.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gastos"

// Outcome labels shared by the counters below.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
	ResultHit     = "hit"
	ResultMiss    = "miss"
)

var (
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)

	expensesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "expenses_total",
			Help:      "Expense submissions by backend and outcome.",
		},
		[]string{"backend", "result"},
	)

	storeLoad = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "load_duration_seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"backend", "result"},
	)

	reportCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporter",
			Name:      "cache_lookups_total",
		},
		[]string{"result"},
	)

	syncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "syncs_total",
			Help:      "Rows mirrored from SQLite to the mirror store.",
		},
		[]string{"result"},
	)
)

func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func RecordExpense(backend, result string) {
	expensesRecorded.WithLabelValues(backend, result).Inc()
}

func ObserveLoad(backend string, err error, elapsed time.Duration) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	storeLoad.WithLabelValues(backend, result).Observe(elapsed.Seconds())
}

func CacheLookup(hit bool) {
	if hit {
		reportCache.WithLabelValues(ResultHit).Inc()
		return
	}
	reportCache.WithLabelValues(ResultMiss).Inc()
}

func RecordSync(err error) {
	if err != nil {
		syncs.WithLabelValues(ResultError).Inc()
		return
	}
	syncs.WithLabelValues(ResultOK).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
