package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "logvault"

// SanitizeMetrics holds Prometheus metrics for the anonymization run.
type SanitizeMetrics struct {
	FilesTotal  *prometheus.CounterVec
	LinesTotal  *prometheus.CounterVec
	MasksTotal  *prometheus.CounterVec
	RunDuration prometheus.Gauge
}

// BackupMetrics holds Prometheus metrics for the backup run.
type BackupMetrics struct {
	RunsTotal         *prometheus.CounterVec
	SizeBeforeBytes   prometheus.Gauge
	SizeAfterBytes    prometheus.Gauge
	DurationSeconds   prometheus.Gauge
	LastSuccessSecond prometheus.Gauge
}

// Registry bundles both metric sets on a private registry so batch runs can
// dump them to a textfile without the process-global default registry.
type Registry struct {
	*prometheus.Registry
	Sanitize *SanitizeMetrics
	Backup   *BackupMetrics
}

// NewRegistry initializes and registers all metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Registry{
		Registry: reg,
		Sanitize: &SanitizeMetrics{
			FilesTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sanitize",
				Name:      "files_total",
				Help:      "Total number of raw log files handled by status.",
			}, []string{"status"}), // status: ok, error
			LinesTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sanitize",
				Name:      "lines_total",
				Help:      "Total number of log lines handled by status.",
			}, []string{"status"}), // status: ok, dropped
			MasksTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sanitize",
				Name:      "masks_total",
				Help:      "Total number of masked PII spans by detector.",
			}, []string{"detector"}),
			RunDuration: f.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sanitize",
				Name:      "run_duration_seconds",
				Help:      "Duration of the last sanitize run.",
			}),
		},
		Backup: &BackupMetrics{
			RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backup",
				Name:      "runs_total",
				Help:      "Total number of backup runs by outcome.",
			}, []string{"outcome"}), // outcome: done, noop, failed
			SizeBeforeBytes: f.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "backup",
				Name:      "size_before_bytes",
				Help:      "Total size of sanitized files before packaging.",
			}),
			SizeAfterBytes: f.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "backup",
				Name:      "size_after_bytes",
				Help:      "Size of the last encoded artifact.",
			}),
			DurationSeconds: f.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "backup",
				Name:      "duration_seconds",
				Help:      "Duration of the last successful packaging and encoding.",
			}),
			LastSuccessSecond: f.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "backup",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last run that produced an artifact.",
			}),
		},
	}
}

// ObserveBackup records a finished run that produced an artifact.
func (m *BackupMetrics) ObserveBackup(sizeBefore, sizeAfter int64, duration time.Duration, end time.Time) {
	m.SizeBeforeBytes.Set(float64(sizeBefore))
	m.SizeAfterBytes.Set(float64(sizeAfter))
	m.DurationSeconds.Set(duration.Seconds())
	m.LastSuccessSecond.Set(float64(end.Unix()))
}

// WriteTextfile dumps all metrics in the node_exporter textfile format.
// The write is atomic, so a collector never reads a partial file.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}
