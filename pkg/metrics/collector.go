// Package metrics exposes the Network Layer's and Data Link Layer's
// saturating statistics counters (spec §7) as Prometheus gauges, and
// serves them over a go-chi/chi HTTP endpoint for `lonctl run`.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/izot/lon-core/pkg/datalink"
	"github.com/izot/lon-core/pkg/network"
)

// Collector is a prometheus.Collector that reads live values out of a
// network.Statistics and datalink.Statistics on every scrape rather than
// pushing updates — the counters already live atomically in the layers,
// so there is nothing to keep in sync.
type Collector struct {
	nwStats *network.Statistics
	dlStats *datalink.Statistics

	nwDesc *prometheus.Desc
	dlDesc *prometheus.Desc
}

// NewCollector builds a Collector reading from the given layers' stats.
func NewCollector(nwStats *network.Statistics, dlStats *datalink.Statistics) *Collector {
	return &Collector{
		nwStats: nwStats,
		dlStats: dlStats,
		nwDesc: prometheus.NewDesc(
			"lon_network_stat",
			"Network layer saturating statistics counter (spec §7), by kind.",
			[]string{"kind"}, nil,
		),
		dlDesc: prometheus.NewDesc(
			"lon_datalink_stat",
			"Data link layer saturating statistics counter (spec §7), by kind.",
			[]string{"kind"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nwDesc
	ch <- c.dlDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.nwStats != nil {
		for kind, value := range c.nwStats.Snapshot() {
			ch <- prometheus.MustNewConstMetric(c.nwDesc, prometheus.GaugeValue, float64(value), kind)
		}
	}
	if c.dlStats != nil {
		for kind, value := range c.dlStats.Snapshot() {
			ch <- prometheus.MustNewConstMetric(c.dlDesc, prometheus.GaugeValue, float64(value), kind)
		}
	}
}

// Register builds a fresh registry containing only this Collector (no
// Go runtime or process collectors), ready to back a /metrics handler.
func Register(nwStats *network.Statistics, dlStats *datalink.Statistics) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(nwStats, dlStats))
	return reg
}
