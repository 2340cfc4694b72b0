package eclipse

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors of a run.
type Metrics struct {
	gatherer prometheus.Gatherer

	Steps          prometheus.Counter
	RunDuration    prometheus.Histogram
	Events         *prometheus.CounterVec
	Misses         prometheus.Counter
	FineSamples    prometheus.Counter
	StabilityBound prometheus.Gauge
}

// NewMetrics registers the collectors against the provided registerer, defaulting to
// the global Prometheus registry when nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	m := &Metrics{
		gatherer: gatherer,
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eclipse_integration_steps_total",
			Help: "Number of coarse RK4 steps committed.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eclipse_run_duration_seconds",
			Help:    "Wall clock duration of trajectory recordings.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eclipse_events_total",
			Help: "Refined eclipse events, labeled by eclipsed body and kind.",
		}, []string{"body", "kind"}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eclipse_refinement_misses_total",
			Help: "Boundaries the fine subdivision failed to bracket.",
		}),
		FineSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eclipse_fine_samples_total",
			Help: "Interpolated instants classified during boundary refinement.",
		}),
		StabilityBound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eclipse_stability_step_ratio",
			Help: "Step size times the largest Jacobian eigenvalue modulus, compared against 2√2.",
		}),
	}
	for _, c := range []prometheus.Collector{m.Steps, m.RunDuration, m.Events, m.Misses, m.FineSamples, m.StabilityBound} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Gatherer returns the gatherer the collectors were registered against.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// WriteToTextfile writes the gathered metrics in the text exposition format.
func (m *Metrics) WriteToTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.gatherer)
}
