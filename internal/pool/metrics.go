package pool

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for a Manager. A nil *Metrics
// records nothing.
type Metrics struct {
	spawns   *prometheus.CounterVec
	created  *prometheus.CounterVec
	despawns *prometheus.CounterVec
	active   *prometheus.GaugeVec
	resets   prometheus.Counter
}

// NewMetrics creates the pool collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		spawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "spawns_total",
			Help:      "Instances handed out by Spawn.",
		}, []string{"kind"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "instances_created_total",
			Help:      "Instances built from a template because no spare was available.",
		}, []string{"kind"}),
		despawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "despawns_total",
			Help:      "Instances returned to their spare stack.",
		}, []string{"kind"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "active_instances",
			Help:      "Instances currently in use.",
		}, []string{"kind"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "resets_total",
			Help:      "DespawnAll runs.",
		}),
	}
	for _, c := range []prometheus.Collector{m.spawns, m.created, m.despawns, m.active, m.resets} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) spawned(kind string, created bool) {
	if m == nil {
		return
	}
	m.spawns.WithLabelValues(kind).Inc()
	if created {
		m.created.WithLabelValues(kind).Inc()
	}
	m.active.WithLabelValues(kind).Inc()
}

func (m *Metrics) despawned(kind string) {
	if m == nil {
		return
	}
	m.despawns.WithLabelValues(kind).Inc()
	m.active.WithLabelValues(kind).Dec()
}

func (m *Metrics) reset() {
	if m == nil {
		return
	}
	m.resets.Inc()
}
