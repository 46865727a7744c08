// Package metrics exports Prometheus collectors for executor config sessions.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "executorconfig"

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	mutations       *prometheus.CounterVec
	persistFailures prometheus.Counter
	autoResets      prometheus.Counter
	openSessions    prometheus.Gauge
	opDuration      *prometheus.HistogramVec
	catalogReloads  *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg, reusing collectors that are
// already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Selection mutations by kind.",
		}, []string{"kind"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Scratch persistence writes that failed.",
		}),
		autoResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_resets_total",
			Help:      "Override selections dropped after a profile key change.",
		}),
		openSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_sessions",
			Help:      "Editing sessions currently held in memory.",
		}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of session operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		catalogReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Profile catalog reloads by result.",
		}, []string{"result"}),
	}

	collectors := []prometheus.Collector{
		m.mutations, m.persistFailures, m.autoResets, m.openSessions, m.opDuration, m.catalogReloads,
	}
	for i, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, fmt.Errorf("register executorconfig metric: %w", err)
			}
			collectors[i] = are.ExistingCollector
		}
	}
	m.mutations = asCounterVec(collectors[0], m.mutations)
	m.persistFailures = asCounter(collectors[1], m.persistFailures)
	m.autoResets = asCounter(collectors[2], m.autoResets)
	m.openSessions = asGauge(collectors[3], m.openSessions)
	m.opDuration = asHistogramVec(collectors[4], m.opDuration)
	m.catalogReloads = asCounterVec(collectors[5], m.catalogReloads)
	return m, nil
}

// MustNewMetrics is NewMetrics that panics on registration errors.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m, err := NewMetrics(reg)
	if err != nil {
		panic(err)
	}
	return m
}

// Handler serves the default gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Mutation(kind string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(kind).Inc()
}

func (m *Metrics) PersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) AutoReset() {
	if m == nil {
		return
	}
	m.autoResets.Inc()
}

func (m *Metrics) SetOpenSessions(n int) {
	if m == nil {
		return
	}
	m.openSessions.Set(float64(n))
}

func (m *Metrics) ObserveOperation(op string, started time.Time) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func (m *Metrics) CatalogReload(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.catalogReloads.WithLabelValues(result).Inc()
}

func asCounterVec(c prometheus.Collector, fallback *prometheus.CounterVec) *prometheus.CounterVec {
	if v, ok := c.(*prometheus.CounterVec); ok {
		return v
	}
	return fallback
}

func asCounter(c prometheus.Collector, fallback prometheus.Counter) prometheus.Counter {
	if v, ok := c.(prometheus.Counter); ok {
		return v
	}
	return fallback
}

func asGauge(c prometheus.Collector, fallback prometheus.Gauge) prometheus.Gauge {
	if v, ok := c.(prometheus.Gauge); ok {
		return v
	}
	return fallback
}

func asHistogramVec(c prometheus.Collector, fallback *prometheus.HistogramVec) *prometheus.HistogramVec {
	if v, ok := c.(*prometheus.HistogramVec); ok {
		return v
	}
	return fallback
}
