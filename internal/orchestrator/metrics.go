package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports session and task counters to Prometheus
type Metrics struct {
	activeSessions *prometheus.GaugeVec
	tasks          *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activeSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "browsermatrix",
			Name:      "active_sessions",
			Help:      "Remote sessions currently between entering and quitting.",
		}, []string{"provider"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "browsermatrix",
			Name:      "tasks_total",
			Help:      "Finished tasks by outcome.",
		}, []string{"provider", "outcome"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "browsermatrix",
			Name:      "step_duration_seconds",
			Help:      "Time spent in each lifecycle step.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"provider", "step"}),
	}
	reg.MustRegister(m.activeSessions, m.tasks, m.stepDuration)
	return m
}

func (m *Metrics) observer(providerName string) Observer {
	return ObserverFunc(func(t Transition) {
		if t.From != StateNotStarted {
			m.stepDuration.WithLabelValues(providerName, t.From.String()).Observe(t.Elapsed.Seconds())
		}
		switch {
		case t.To == StateEntering:
			m.activeSessions.WithLabelValues(providerName).Inc()
		case t.To == StateQuitting:
			// tasks that never got past the start throttle hold no session
			if t.From != StateNotStarted {
				m.activeSessions.WithLabelValues(providerName).Dec()
			}
		case t.To.Terminal():
			m.tasks.WithLabelValues(providerName, t.To.String()).Inc()
		}
	})
}
