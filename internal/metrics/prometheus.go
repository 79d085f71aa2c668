// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes Stats as a Prometheus collector. It reads the
// underlying atomic counters at scrape time rather than keeping a
// second set of Prometheus-native counters in sync on the hot path —
// the atomics already are the source of truth, this just reports them
// in the shape promhttp expects.
type Collector struct {
	stats *Stats

	totalCommands     *prometheus.Desc
	activeConnections *prometheus.Desc
	totalKeys         *prometheus.Desc
	totalSearches     *prometheus.Desc
	memoryUsageBytes  *prometheus.Desc
	uptimeSeconds     *prometheus.Desc
}

// NewCollector wraps stats as a prometheus.Collector.
func NewCollector(stats *Stats) *Collector {
	return &Collector{
		stats: stats,
		totalCommands: prometheus.NewDesc(
			"vecindex_commands_total", "Total number of commands processed.", nil, nil),
		activeConnections: prometheus.NewDesc(
			"vecindex_active_connections", "Current number of active connections.", nil, nil),
		totalKeys: prometheus.NewDesc(
			"vecindex_keys_total", "Total number of vectors stored.", nil, nil),
		totalSearches: prometheus.NewDesc(
			"vecindex_searches_total", "Total number of vec_sim queries executed.", nil, nil),
		memoryUsageBytes: prometheus.NewDesc(
			"vecindex_memory_usage_bytes", "Approximate process memory usage.", nil, nil),
		uptimeSeconds: prometheus.NewDesc(
			"vecindex_uptime_seconds", "Seconds since the server started.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalCommands
	ch <- c.activeConnections
	ch <- c.totalKeys
	ch <- c.totalSearches
	ch <- c.memoryUsageBytes
	ch <- c.uptimeSeconds
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.totalCommands, prometheus.CounterValue, float64(c.stats.GetTotalCommands()))
	ch <- prometheus.MustNewConstMetric(c.activeConnections, prometheus.GaugeValue, float64(c.stats.GetActiveConnections()))
	ch <- prometheus.MustNewConstMetric(c.totalKeys, prometheus.GaugeValue, float64(c.stats.GetTotalKeys()))
	ch <- prometheus.MustNewConstMetric(c.totalSearches, prometheus.CounterValue, float64(c.stats.GetTotalSearches()))
	ch <- prometheus.MustNewConstMetric(c.memoryUsageBytes, prometheus.GaugeValue, float64(c.stats.GetMemoryUsage()))
	ch <- prometheus.MustNewConstMetric(c.uptimeSeconds, prometheus.GaugeValue, c.stats.GetUptime().Seconds())
}
