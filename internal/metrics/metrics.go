// Package metrics records run metrics in a private Prometheus registry and
// exports them in the node_exporter textfile format.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hlsladder"

// Metrics holds the collectors for one process. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	transcodeDuration *prometheus.HistogramVec
	renditions        *prometheus.CounterVec
	uploads           *prometheus.CounterVec
	uploadBytes       prometheus.Counter
	runsInProgress    prometheus.Gauge
	runDuration       prometheus.Gauge
	lastRun           *prometheus.GaugeVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		transcodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_duration_seconds",
			Help:      "Wall time of one rendition transcode.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}, []string{"rendition", "status"}),
		renditions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renditions_total",
			Help:      "Rendition transcodes by outcome.",
		}, []string{"status"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Artifact uploads by outcome.",
		}, []string{"status"}),
		uploadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes successfully uploaded.",
		}),
		runsInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_progress",
			Help:      "Runs currently executing in this process.",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the most recent run.",
		}),
		lastRun: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent run finished, by result.",
		}, []string{"result"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RunStarted marks a run as in flight.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsInProgress.Inc()
}

// RunFinished records the run's wall time and result label.
func (m *Metrics) RunFinished(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runsInProgress.Dec()
	m.runDuration.Set(elapsed.Seconds())
	m.lastRun.Reset()
	m.lastRun.WithLabelValues(result).SetToCurrentTime()
}

// ObserveTranscode records one settled rendition.
func (m *Metrics) ObserveTranscode(rendition, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.renditions.WithLabelValues(status).Inc()
	m.transcodeDuration.WithLabelValues(rendition, status).Observe(elapsed.Seconds())
}

// ObserveUpload records one settled upload.
func (m *Metrics) ObserveUpload(ok bool, bytes int64) {
	if m == nil {
		return
	}
	if !ok {
		m.uploads.WithLabelValues("failed").Inc()
		return
	}
	m.uploads.WithLabelValues("uploaded").Inc()
	m.uploadBytes.Add(float64(bytes))
}

// WriteTextfile writes the registry to path for the node_exporter textfile
// collector. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
