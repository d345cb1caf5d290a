// Package metrics records benchmark progress as Prometheus metrics and
// summarizes timing samples.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the status label.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
)

// Recorder holds the metrics of one benchmark. It uses its own registry so
// several benchmarks in one process do not collide.
type Recorder struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	methodDuration *prometheus.HistogramVec
	inFlight       prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontobench",
			Name:      "runs_total",
			Help:      "Benchmark runs by outcome",
		}, []string{"status"}),
		methodDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ontobench",
			Name:      "method_duration_seconds",
			Help:      "Time spent in one enrichment method per run",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"method"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ontobench",
			Name:      "runs_in_flight",
			Help:      "Runs currently executing",
		}),
	}
	r.registry.MustRegister(r.runs, r.methodDuration, r.inFlight)
	return r
}

// Registry returns the registry holding the benchmark metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RunStarted() {
	r.inFlight.Inc()
}

// RunFinished counts a run under status and ends its in-flight period.
func (r *Recorder) RunFinished(status string) {
	r.inFlight.Dec()
	r.runs.WithLabelValues(status).Inc()
}

func (r *Recorder) ObserveMethod(method string, d time.Duration) {
	r.methodDuration.WithLabelValues(method).Observe(d.Seconds())
}

// WriteTextfile writes the metrics in the text exposition format, e.g. for
// the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
