package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkvault_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkvault_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkvault_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkvault_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Store totals
var (
	BookmarksTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkvault_bookmarks_total",
			Help: "Number of stored bookmarks, excluding private ones",
		},
	)

	TagsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkvault_tags_total",
			Help: "Number of distinct tag names",
		},
	)

	FavoritesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkvault_favorites_total",
			Help: "Number of saved favorites",
		},
	)
)

// Import metrics
var (
	ImportBookmarksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkvault_import_bookmarks_total",
			Help: "Bulk import outcomes per bookmark draft",
		},
		[]string{"outcome"}, // "inserted", "duplicate", "skipped"
	)

	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkvault_search_queries_total",
			Help: "Search queries answered, per resolved mode",
		},
		[]string{"mode"}, // "tags", "fulltext", "substring"
	)
)
