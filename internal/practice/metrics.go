package practice

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports session engine counters. A nil *Metrics records nothing.
type Metrics struct {
	sessionsCreated    *prometheus.CounterVec
	sessionsFinished   *prometheus.CounterVec
	answers            *prometheus.CounterVec
	rejected           *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flag_practice",
			Name:      "sessions_created_total",
			Help:      "Practice sessions created, by mode.",
		}, []string{"mode"}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flag_practice",
			Name:      "sessions_finished_total",
			Help:      "Practice sessions reaching a terminal status.",
		}, []string{"mode", "status"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flag_practice",
			Name:      "answers_total",
			Help:      "Accepted answer submissions, by mode and correctness.",
		}, []string{"mode", "result"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flag_practice",
			Name:      "rejected_operations_total",
			Help:      "Operations rejected by the engine, by operation and error kind.",
		}, []string{"operation", "kind"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flag_practice",
			Name:      "generation_duration_seconds",
			Help:      "Time spent generating a session's questions.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"mode"}),
	}
	if reg != nil {
		reg.MustRegister(m.sessionsCreated, m.sessionsFinished, m.answers, m.rejected, m.generationDuration)
	}
	return m
}

func (m *Metrics) sessionCreated(mode Mode) {
	if m == nil {
		return
	}
	m.sessionsCreated.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) sessionFinished(mode Mode, status Status) {
	if m == nil {
		return
	}
	m.sessionsFinished.WithLabelValues(string(mode), string(status)).Inc()
}

func (m *Metrics) answer(mode Mode, correct bool) {
	if m == nil {
		return
	}
	result := "incorrect"
	if correct {
		result = "correct"
	}
	m.answers.WithLabelValues(string(mode), result).Inc()
}

func (m *Metrics) reject(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.rejected.WithLabelValues(operation, ErrorKind(err)).Inc()
}

func (m *Metrics) generation(mode Mode, d time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(string(mode)).Observe(d.Seconds())
}
