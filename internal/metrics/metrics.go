// Package metrics exposes Prometheus collectors for the pallet engine. A nil
// *Metrics is valid and records nothing, so components can take it as an
// optional dependency.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spaceflow"

type Metrics struct {
	registry *prometheus.Registry

	actions       *prometheus.CounterVec
	events        *prometheus.CounterVec
	translations  *prometheus.HistogramVec
	palletsTotal  prometheus.Gauge
	palletsShown  prometheus.Gauge
	simTicks      prometheus.Counter
	scannerFrames *prometheus.CounterVec
}

// New builds collectors on a private registry, so several instances can live
// in one process (tests).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pallet_actions_total",
			Help:      "Pallet mutations by action and outcome.",
		}, []string{"action", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pallet_events_total",
			Help:      "Pallet events appended to the log, by type.",
		}, []string{"type"}),
		translations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "intent_translation_seconds",
			Help:      "Latency of prompt translation, by result reason.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"reason"}),
		palletsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pallets",
			Help:      "Pallets in the canonical collection.",
		}),
		palletsShown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pallets_visible",
			Help:      "Pallets passing the active filter.",
		}),
		simTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_ticks_total",
			Help:      "Simulation ticks executed.",
		}),
		scannerFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scanner_messages_total",
			Help:      "Handheld scanner messages consumed, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.actions,
		m.events,
		m.translations,
		m.palletsTotal,
		m.palletsShown,
		m.simTicks,
		m.scannerFrames,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAction(action, outcome string, affected int) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome).Add(float64(max(affected, 1)))
}

func (m *Metrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ObserveTranslation(reason string, took time.Duration) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(reason).Observe(took.Seconds())
}

func (m *Metrics) SetPallets(total, visible int) {
	if m == nil {
		return
	}
	m.palletsTotal.Set(float64(total))
	m.palletsShown.Set(float64(visible))
}

func (m *Metrics) IncSimulationTick() {
	if m == nil {
		return
	}
	m.simTicks.Inc()
}

func (m *Metrics) ObserveScannerMessage(result string) {
	if m == nil {
		return
	}
	m.scannerFrames.WithLabelValues(result).Inc()
}
