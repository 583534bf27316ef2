package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tictactoe_board"

// Metrics counts board activity on its own registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	movesAccepted *prometheus.CounterVec
	movesRejected *prometheus.CounterVec
	resets        *prometheus.CounterVec
	presses       prometheus.Counter
	staleEffects  *prometheus.CounterVec
	subscribers   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		movesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_accepted_total",
			Help:      "Moves applied to the board by input source",
		}, []string{"source"}),
		movesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_rejected_total",
			Help:      "Moves rejected by reason",
		}, []string{"reason"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Game resets by trigger",
		}, []string{"trigger"}),
		presses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presses_total",
			Help:      "Debounced button presses",
		}),
		staleEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_effects_total",
			Help:      "Indicator effects discarded because the game moved on",
		}, []string{"kind"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Connected network subscribers",
		}),
	}

	m.registry.MustRegister(
		m.movesAccepted,
		m.movesRejected,
		m.resets,
		m.presses,
		m.staleEffects,
		m.subscribers,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncMoveAccepted(source string) {
	if m == nil {
		return
	}
	m.movesAccepted.WithLabelValues(source).Inc()
}

func (m *Metrics) IncMoveRejected(reason string) {
	if m == nil {
		return
	}
	m.movesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncReset(trigger string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(trigger).Inc()
}

func (m *Metrics) IncPress() {
	if m == nil {
		return
	}
	m.presses.Inc()
}

func (m *Metrics) IncStaleEffect(kind string) {
	if m == nil {
		return
	}
	m.staleEffects.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncSubscribers() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

func (m *Metrics) DecSubscribers() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}
