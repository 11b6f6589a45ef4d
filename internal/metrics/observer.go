// Package metrics exports lifecycle phase metrics to Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"testrig/internal/lifecycle"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Observer is a lifecycle.Observer recording phase counts, durations and
// invocations in flight.
type Observer struct {
	// phaseDuration tracks how long each phase takes.
	//
	// Labels: level, phase, outcome (ok or error)
	phaseDuration *prometheus.HistogramVec

	// phaseTotal counts finished phases.
	//
	// Labels: level, phase, outcome (ok or error)
	phaseTotal *prometheus.CounterVec

	// active counts invocations between PreVerify and Teardown.
	active *prometheus.GaugeVec
}

// NewObserver registers the metrics with reg under namespace.
func NewObserver(reg prometheus.Registerer, namespace string) *Observer {
	factory := promauto.With(reg)
	return &Observer{
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of lifecycle phases in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"level", "phase", "outcome"}),
		phaseTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phases_total",
			Help:      "Total lifecycle phases run by level, phase and outcome",
		}, []string{"level", "phase", "outcome"}),
		active: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_invocations",
			Help:      "Test invocations currently set up",
		}, []string{"level"}),
	}
}

func (o *Observer) PhaseStarted(ctx context.Context, rc *lifecycle.Context, phase lifecycle.Phase) context.Context {
	if phase == lifecycle.PreVerify {
		o.active.WithLabelValues(rc.Level().String()).Inc()
	}
	return ctx
}

func (o *Observer) PhaseFinished(ctx context.Context, rc *lifecycle.Context, phase lifecycle.Phase, elapsed time.Duration, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	level := rc.Level().String()
	o.phaseDuration.WithLabelValues(level, phase.String(), outcome).Observe(elapsed.Seconds())
	o.phaseTotal.WithLabelValues(level, phase.String(), outcome).Inc()

	if phase == lifecycle.Teardown {
		o.active.WithLabelValues(level).Dec()
	}
}
