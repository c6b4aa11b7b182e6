package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/javamon/jvm-exporter/internal/snapshot"
)

// familyHelp is the help text attached to each exposed family.
var familyHelp = map[string]string{
	"jstat_class_metrics":                   "Metrics from jstat -class",
	"jstat_gc_metrics":                      "Metrics from jstat -gc",
	"jstat_gcutil_metrics":                  "Metrics from jstat -gcutil",
	"process_cpu_usage":                     "CPU usage percentage of the process",
	"process_memory_usage_bytes":            "Memory usage in bytes of the process",
	"process_memory_usage_percentage":       "Memory usage percentage of the process",
	"process_start_time_seconds":            "Start time of the process in seconds since the epoch",
	"process_up_time_seconds":               "Up time of the process in seconds",
	"process_open_files":                    "Open file descriptors of the process",
	"process_open_files_limit":              "Soft limit on open file descriptors of the process",
	"process_tcp_connection_states":         "TCP connections of the process by state",
	"system_cpu_usage_percentage":           "Per-core system CPU usage percentage",
	"system_memory_usage_bytes":             "System memory usage in bytes",
	"system_total_memory_bytes":             "Total system memory in bytes",
	"system_swap_usage_bytes":               "Used swap memory in bytes",
	"system_total_swap_bytes":               "Total swap memory in bytes",
	"system_disk_usage_bytes":               "Disk usage in bytes",
	"system_total_disk_bytes":               "Total disk space in bytes",
	"system_network_receive_bytes_per_sec":  "Network receive rate in bytes per second",
	"system_network_transmit_bytes_per_sec": "Network transmit rate in bytes per second",
	"system_uptime_seconds":                 "Total system uptime in seconds",
}

func helpFor(family string) string {
	if h, ok := familyHelp[family]; ok {
		return h
	}
	return "Exported metric"
}

// snapshotCollector adapts the published snapshot to the Prometheus scrape
// API. Collect is an O(snapshot) walk over already-computed values; it never
// triggers sampling and never blocks on I/O.
type snapshotCollector struct {
	registry *snapshot.Registry
}

// Describe sends nothing, making this an unchecked collector: the metric set
// changes as processes come and go, so there is no static descriptor list.
func (c *snapshotCollector) Describe(chan<- *prometheus.Desc) {}

// Collect emits one gauge per snapshot sample.
func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.registry.Current()
	for _, family := range snap.Families() {
		for _, s := range snap.Samples(family) {
			keys, values := s.Labels.Split()
			desc := prometheus.NewDesc(family, helpFor(family), keys, nil)
			m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, s.Value, values...)
			if err != nil {
				continue
			}
			ch <- m
		}
	}
}
