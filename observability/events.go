package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"filmvault/core/events"
)

// eventMetrics counts emitted module events by type so dashboards can track
// ledger activity without querying the event index.
type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the emitter-shaped metrics recorder. It is wired into the
// node's emitter fan-out alongside the explorer index.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "filmvault",
				Subsystem: "module",
				Name:      "events_total",
				Help:      "Total module events emitted by the ledger, segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// Emit implements the events.Emitter interface.
func (m *eventMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	m.emitted.WithLabelValues(evt.EventType()).Inc()
}
