// Package observability provides Prometheus metrics for FAT volume operations.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// namespace is the Prometheus metric namespace prefix for all volume metrics.
	namespace = "vfat"

	// StatusSuccess is the status label recorded for successful operations.
	StatusSuccess = "success"
)

// Metrics holds all Prometheus metrics for volume operations.
type Metrics struct {
	registry *prometheus.Registry

	// Operation metrics
	volumeOpsTotal    *prometheus.CounterVec
	volumeOpsDuration *prometheus.HistogramVec

	// Integrity check metrics
	checkPasses prometheus.Histogram

	// Mount metrics
	readOnlyFallbacksTotal prometheus.Counter
	lostDirTotal           *prometheus.CounterVec

	// Support probe metrics
	supportProbesTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
// Uses a custom registry so several instances can coexist (not DefaultRegistry).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		volumeOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "volume_operations_total",
				Help:      "Total number of volume operations by type and status",
			},
			[]string{"operation", "status"},
		),

		volumeOpsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "volume_operation_duration_seconds",
				Help:      "Duration of volume operations in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 90, 180},
			},
			[]string{"operation"},
		),

		checkPasses: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_passes",
			Help:      "Number of check tool passes needed per integrity check",
			Buckets:   []float64{1, 2, 3, 4},
		}),

		readOnlyFallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readonly_fallbacks_total",
			Help:      "Total number of mounts retried read-only after the medium refused writes",
		}),

		lostDirTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lost_dir_creations_total",
				Help:      "Total number of lost-cluster recovery directory creations by status",
			},
			[]string{"status"},
		),

		supportProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "support_probes_total",
				Help:      "Total number of support probes by result",
			},
			[]string{"supported"},
		),
	}

	reg.MustRegister(
		m.volumeOpsTotal,
		m.volumeOpsDuration,
		m.checkPasses,
		m.readOnlyFallbacksTotal,
		m.lostDirTotal,
		m.supportProbesTotal,
	)

	return m
}

// WriteTextfile writes all metrics to path in the text exposition format,
// for pickup by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// RecordVolumeOp records a volume operation with timing.
// operation should be one of: check, mount, format.
// status is StatusSuccess or a failure kind such as "timeout".
func (m *Metrics) RecordVolumeOp(operation, status string, duration time.Duration) {
	m.volumeOpsTotal.WithLabelValues(operation, status).Inc()
	m.volumeOpsDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCheckPasses records how many check tool passes an integrity check used.
func (m *Metrics) RecordCheckPasses(passes int) {
	m.checkPasses.Observe(float64(passes))
}

// RecordReadOnlyFallback records a mount retried with the read-only flag.
func (m *Metrics) RecordReadOnlyFallback() {
	m.readOnlyFallbacksTotal.Inc()
}

// RecordLostDir records an attempt to create the lost-cluster recovery directory.
func (m *Metrics) RecordLostDir(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.lostDirTotal.WithLabelValues(status).Inc()
}

// RecordSupportProbe records the result of a support probe.
func (m *Metrics) RecordSupportProbe(supported bool) {
	label := "false"
	if supported {
		label = "true"
	}
	m.supportProbesTotal.WithLabelValues(label).Inc()
}
