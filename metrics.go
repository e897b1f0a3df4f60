package driftbox

import "github.com/prometheus/client_golang/prometheus"

// Metrics publishes the repository's lifecycle counters: every
// transition into failed, every sweeper eviction, every overwrite, and
// every lookup hit/miss, all observable from outside the process.
// Grounded on dzyanis-ent's label-vector telemetry (main.go), collapsed
// into a single vector keyed by event kind since driftbox has far fewer
// request dimensions than ent's per-bucket metrics.
type Metrics struct {
	events *prometheus.CounterVec
}

// NewMetrics builds a Metrics and, if reg is non-nil, registers it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driftbox",
			Name:      "repository_events_total",
			Help:      "Count of slab and repository lifecycle events by kind.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(m.events)
	}
	return m
}

// A nil *Metrics is a valid, inert Metrics: every method below is a no-op
// so callers that don't care about metrics can leave Options.Metrics unset.

func (m *Metrics) ObserveFailedAppend() {
	if m != nil {
		m.events.WithLabelValues("failed").Inc()
	}
}

func (m *Metrics) ObserveEviction() {
	if m != nil {
		m.events.WithLabelValues("evicted").Inc()
	}
}

func (m *Metrics) ObserveOverwrite() {
	if m != nil {
		m.events.WithLabelValues("overwritten").Inc()
	}
}

func (m *Metrics) ObserveLookupHit() {
	if m != nil {
		m.events.WithLabelValues("lookup_hit").Inc()
	}
}

func (m *Metrics) ObserveLookupMiss() {
	if m != nil {
		m.events.WithLabelValues("lookup_miss").Inc()
	}
}
