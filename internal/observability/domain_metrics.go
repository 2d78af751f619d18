package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	warehouseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "techstore_warehouse_queries_total",
			Help: "Total number of warehouse statements executed, by query and outcome.",
		},
		[]string{"query", "outcome"},
	)
	warehouseQueryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "techstore_warehouse_query_duration_seconds",
			Help:    "Warehouse round-trip latency including connection setup.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"query"},
	)
	warehouseRowsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "techstore_warehouse_rows_returned",
			Help:    "Rows materialized per warehouse statement.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
		},
		[]string{"query"},
	)
	validationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "techstore_validation_rejections_total",
			Help: "Requests rejected before reaching the warehouse, by parameter.",
		},
		[]string{"parameter"},
	)
)

func init() {
	prometheus.MustRegister(
		warehouseQueriesTotal,
		warehouseQueryDurationSeconds,
		warehouseRowsReturned,
		validationRejectionsTotal,
	)
}

func ObserveWarehouseQuery(query string, rows int, elapsed time.Duration, err error) {
	if query == "" {
		query = "unnamed"
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	warehouseQueriesTotal.WithLabelValues(query, outcome).Inc()
	warehouseQueryDurationSeconds.WithLabelValues(query).Observe(elapsed.Seconds())
	if err == nil {
		warehouseRowsReturned.WithLabelValues(query).Observe(float64(rows))
	}
}

func IncrementValidationRejection(parameter string) {
	validationRejectionsTotal.WithLabelValues(parameter).Inc()
}
