package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "triage"

// Recorder collects per-run pipeline metrics on its own registry.
// NewRecorder should be used to create instances of Recorder.
type Recorder struct {
	registry *prometheus.Registry

	// placements counts records by mode and outcome.
	// Labels: mode (fresh, manual), outcome (approved, denied, manual, unresolved, skipped, cancelled)
	placements *prometheus.CounterVec

	// analysisSeconds measures analyzer invocation time.
	// Labels: mode
	analysisSeconds *prometheus.HistogramVec

	// acquisitionFailures counts failed working copy acquisitions.
	acquisitionFailures prometheus.Counter
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "records_total",
			Help:      "Records handled by the triage pipeline by mode and outcome",
		}, []string{"mode", "outcome"}),
		analysisSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analysis_seconds",
			Help:      "Time spent in the external analyzer per record",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		}, []string{"mode"}),
		acquisitionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "acquisition_failures_total",
			Help:      "Working copies that could not be acquired",
		}),
	}

	for _, c := range []prometheus.Collector{r.placements, r.analysisSeconds, r.acquisitionFailures} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
		}
	}

	return r, nil
}

// RecordPlacement records a record outcome for a mode.
func (r *Recorder) RecordPlacement(mode string, outcome string) {
	if r == nil {
		return
	}
	r.placements.WithLabelValues(mode, outcome).Inc()
}

// RecordAnalysis records how long one analyzer invocation took.
func (r *Recorder) RecordAnalysis(mode string, d time.Duration) {
	if r == nil {
		return
	}
	r.analysisSeconds.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordAcquisitionFailure records a failed acquisition.
func (r *Recorder) RecordAcquisitionFailure() {
	if r == nil {
		return
	}
	r.acquisitionFailures.Inc()
}

// Gatherer exposes the registry for scraping or export.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteToTextfile writes the current metrics in the Prometheus text format to path,
// suitable for the node exporter textfile collector.
func (r *Recorder) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to '%s': %w", path, err)
	}
	return nil
}
