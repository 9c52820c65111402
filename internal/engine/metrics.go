package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storeMetrics holds optional Prometheus counters for the store.
// All methods are nil-safe: a store without WithMetrics carries a nil
// *storeMetrics and pays only a nil check per event.
type storeMetrics struct {
	applied            *prometheus.CounterVec
	dropped            *prometheus.CounterVec
	selectorRecomputes prometheus.Counter
	adapterFailures    *prometheus.CounterVec
}

func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	factory := promauto.With(reg)
	return &storeMetrics{
		applied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "state_changes_applied_total",
			Help: "Change events applied to the snapshot, by origin.",
		}, []string{"origin"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "state_changes_dropped_total",
			Help: "Change events dropped before application, by reason.",
		}, []string{"reason"}),
		selectorRecomputes: factory.NewCounter(prometheus.CounterOpts{
			Name: "state_selector_recomputes_total",
			Help: "Selector compute function invocations triggered by changes.",
		}),
		adapterFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "state_adapter_failures_total",
			Help: "Failed persistence or transport calls, by adapter.",
		}, []string{"adapter"}),
	}
}

func (m *storeMetrics) incApplied(origin string) {
	if m == nil {
		return
	}
	m.applied.WithLabelValues(origin).Inc()
}

func (m *storeMetrics) incDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *storeMetrics) incSelectorRecompute() {
	if m == nil {
		return
	}
	m.selectorRecomputes.Inc()
}

func (m *storeMetrics) incAdapterFailure(adapter string) {
	if m == nil {
		return
	}
	m.adapterFailures.WithLabelValues(adapter).Inc()
}
