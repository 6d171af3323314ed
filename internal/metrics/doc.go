// Package metrics declares the Prometheus instrumentation for linkvault.
//
// It covers database query and transaction timing, bulk import outcomes,
// and gauges for the current number of bookmarks, tags and favorites.
// A Collector periodically refreshes the store gauges from a StatsProvider.
package metrics
