// Package metrics collects and exposes Prometheus metrics for the feed
// cache.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements store.Recorder on top of Prometheus counters.
type Collector struct {
	itemsUpserted prometheus.Counter
	noopSkips     prometheus.Counter
	digestRaces   prometheus.Counter
	notifications prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		itemsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_items_upserted_total",
			Help: "Total number of items written into the cache.",
		}),
		noopSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_noop_skips_total",
			Help: "Total number of feed inserts skipped because the page matched the stored state.",
		}),
		digestRaces: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_digest_races_total",
			Help: "Total number of continuations dropped after losing the digest race.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_notifications_total",
			Help: "Total number of feed change notifications fired.",
		}),
	}

	reg.MustRegister(
		c.itemsUpserted,
		c.noopSkips,
		c.digestRaces,
		c.notifications,
	)

	return c
}

// RecordItemsUpserted counts items written by a feed merge.
func (c *Collector) RecordItemsUpserted(count int) {
	c.itemsUpserted.Add(float64(count))
}

// RecordNoopSkip counts a short-circuited feed insert.
func (c *Collector) RecordNoopSkip() {
	c.noopSkips.Inc()
}

// RecordDigestRace counts a continuation that lost the digest race.
func (c *Collector) RecordDigestRace() {
	c.digestRaces.Inc()
}

// RecordNotification counts a change notification.
func (c *Collector) RecordNotification() {
	c.notifications.Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
