// Package metrics collects upgrade statistics on a private Prometheus
// registry and writes them for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fwupgrade"

// Recorder holds the upgrade metrics.
type Recorder struct {
	registry *prometheus.Registry

	stepsTotal         *prometheus.CounterVec
	transferBytesTotal *prometheus.CounterVec
	jobDuration        prometheus.Gauge
	jobOutcome         *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Upgrade steps by device, step and result",
			},
			[]string{"device", "step", "result"},
		),
		transferBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfer_bytes_total",
				Help:      "Image bytes uploaded per device",
			},
			[]string{"device"},
		),
		jobDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Wall time of the last upgrade job",
			},
		),
		jobOutcome: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "job_outcome",
				Help:      "Outcome of the last upgrade job, 1 for the outcome that occurred",
			},
			[]string{"outcome"},
		),
	}

	r.registry.MustRegister(r.stepsTotal, r.transferBytesTotal, r.jobDuration, r.jobOutcome)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// StepCompleted counts a finished step.
func (r *Recorder) StepCompleted(device, step, result string) {
	r.stepsTotal.WithLabelValues(device, step, result).Inc()
}

// TransferBytes counts uploaded bytes.
func (r *Recorder) TransferBytes(device string, n int64) {
	if n > 0 {
		r.transferBytesTotal.WithLabelValues(device).Add(float64(n))
	}
}

// JobFinished records the job duration and outcome.
func (r *Recorder) JobFinished(outcome string, elapsed time.Duration) {
	r.jobDuration.Set(elapsed.Seconds())
	r.jobOutcome.Reset()
	r.jobOutcome.WithLabelValues(outcome).Set(1)
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
