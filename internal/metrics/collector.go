package metrics

import (
	"time"

	"linkvault/internal/logging"
)

// Stats holds the store totals exported as gauges.
type Stats struct {
	TotalBookmarks int
	TotalTags      int
	TotalFavorites int
}

// StatsProvider supplies the current store totals.
type StatsProvider interface {
	GetStats() Stats
}

// Collector periodically refreshes the store gauges from a StatsProvider.
type Collector struct {
	provider StatsProvider
	interval time.Duration
	stopChan chan struct{}
}

// NewCollector creates a collector that refreshes every interval.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	stats := c.provider.GetStats()

	BookmarksTotal.Set(float64(stats.TotalBookmarks))
	TagsTotal.Set(float64(stats.TotalTags))
	FavoritesTotal.Set(float64(stats.TotalFavorites))

	logging.Debug("Metrics collected: bookmarks=%d, tags=%d, favorites=%d",
		stats.TotalBookmarks, stats.TotalTags, stats.TotalFavorites)
}
