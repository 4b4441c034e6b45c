package dispatch

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeHit       = "hit"
	outcomeMiss      = "miss"
	outcomeAmbiguous = "ambiguous"
)

// Metrics counts lookups per table and outcome.
type Metrics struct {
	resolutions *prometheus.CounterVec
}

// NewMetrics registers the dispatch counters with reg. Registering twice
// against the same registerer reuses the existing collector.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gosvgp",
		Subsystem: "dispatch",
		Name:      "resolutions_total",
		Help:      "Dispatch table lookups by table and outcome.",
	}, []string{"table", "outcome"})
	if err := reg.Register(resolutions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		resolutions = existing
	}
	return &Metrics{resolutions: resolutions}, nil
}

// Resolutions returns the counter for a table and outcome.
func (m *Metrics) Resolutions(table, outcome string) prometheus.Counter {
	return m.resolutions.WithLabelValues(table, outcome)
}

func (m *Metrics) observe(table, outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(table, outcome).Inc()
}
