// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes classify.Tables' path_stats and whitelist-miss
// counters as Prometheus counters. spec.md §6 is explicit that the exporter
// itself is out of scope but that "the exporter" — whoever it is — "must
// sum per-CPU shards" rather than read one shard and call it the total;
// Collector is exactly that summing primitive, nothing more. It does not
// run an HTTP server; a caller registers it with its own
// prometheus.Registry and serves /metrics however it likes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"flowgate.dev/flowgate/internal/classify"
)

// Collector implements prometheus.Collector by reading classify.Tables'
// shard-summed counters on every scrape. It holds no state of its own
// between scrapes, following internal/ebpf/stats.Collector's
// collect-on-demand pattern rather than caching and invalidating.
type Collector struct {
	tables *classify.Tables

	fastDesc      *prometheus.Desc
	slowDesc      *prometheus.Desc
	whitelistDesc *prometheus.Desc
}

// New returns a Collector reading from tables. Register it with a
// prometheus.Registry to expose the three counters it describes.
func New(tables *classify.Tables) *Collector {
	return &Collector{
		tables: tables,
		fastDesc: prometheus.NewDesc(
			"flowgate_path_stats_fast_total",
			"Packets classified via the flow-cache fast path.",
			nil, nil,
		),
		slowDesc: prometheus.NewDesc(
			"flowgate_path_stats_slow_total",
			"Packets classified via the deep-inspection slow path.",
			nil, nil,
		),
		whitelistDesc: prometheus.NewDesc(
			"flowgate_whitelist_misses_total",
			"Packets that missed the whitelist table.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.fastDesc
	ch <- c.slowDesc
	ch <- c.whitelistDesc
}

// Collect implements prometheus.Collector, summing every shard at scrape
// time (spec.md §6, §9).
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	fast, slow := c.tables.PathStats()
	ch <- prometheus.MustNewConstMetric(c.fastDesc, prometheus.CounterValue, float64(fast))
	ch <- prometheus.MustNewConstMetric(c.slowDesc, prometheus.CounterValue, float64(slow))
	ch <- prometheus.MustNewConstMetric(c.whitelistDesc, prometheus.CounterValue, float64(c.tables.WhitelistMisses()))
}
