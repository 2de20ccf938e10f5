package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for placement validation and persist
// outcomes. All Observe helpers are nil-receiver safe so wiring metrics stays
// optional.
type SchedulingMetrics struct {
	placementsTotal *prometheus.CounterVec
	persistsTotal   *prometheus.CounterVec
	rollbacksTotal  prometheus.Counter
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		placementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicboard",
			Subsystem: "scheduling",
			Name:      "placements_total",
			Help:      "Placement validations by outcome",
		}, []string{"outcome"}),
		persistsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicboard",
			Subsystem: "scheduling",
			Name:      "persists_total",
			Help:      "Persist calls to the clinic API by operation and outcome",
		}, []string{"operation", "outcome"}),
		rollbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicboard",
			Subsystem: "scheduling",
			Name:      "rollbacks_total",
			Help:      "Optimistic records rolled back after a refused persist",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.placementsTotal, m.persistsTotal, m.rollbacksTotal)
	return m
}

func (m *SchedulingMetrics) ObservePlacement(outcome string) {
	if m == nil {
		return
	}
	m.placementsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObservePersist(operation, outcome string) {
	if m == nil {
		return
	}
	m.persistsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveRollback() {
	if m == nil {
		return
	}
	m.rollbacksTotal.Inc()
}
