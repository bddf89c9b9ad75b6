// Package metrics records build outcomes and step durations for a run and
// exports them in the Prometheus text format.
package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/prometheus/client_golang/prometheus"

	"raur/internal/ports"
	"raur/internal/types"
)

type Recorder struct {
	registry     *prometheus.Registry
	results      *prometheus.CounterVec
	stepErrors   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	planSize     prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raur_build_results_total",
				Help: "Number of plan entries by outcome.",
			},
			[]string{"outcome"},
		),
		stepErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raur_step_errors_total",
				Help: "Number of failed stage, build and install steps.",
			},
			[]string{"step"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "raur_step_duration_seconds",
				Help:    "Time taken by each orchestrator step.",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"step"},
		),
		planSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "raur_plan_entries",
				Help: "Number of entries in the last build plan.",
			},
		),
	}
	r.registry.MustRegister(r.results, r.stepErrors, r.stepDuration, r.planSize)
	return r
}

func (r *Recorder) StepFinished(_ types.PackageName, step string, elapsed time.Duration, err error) {
	r.stepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
	if err != nil {
		r.stepErrors.WithLabelValues(step).Inc()
	}
}

func (r *Recorder) ResultRecorded(result types.BuildResult) {
	r.results.WithLabelValues(string(result.Outcome)).Inc()
}

func (r *Recorder) PlanSize(n int) {
	r.planSize.Set(float64(n))
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current values in the node_exporter textfile
// format. The write is atomic.
func (r *Recorder) WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("metrics textfile path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create metrics directory").
			WithCause(err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write metrics textfile").
			WithCause(err)
	}
	return nil
}

var _ ports.RunObserverPort = (*Recorder)(nil)
