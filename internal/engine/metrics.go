package engine

import "github.com/prometheus/client_golang/prometheus"

// Cycle results, used as the "result" label.
const (
	cycleCompleted = "completed"
	cycleCancelled = "cancelled"
	cycleFailed    = "failed"
	cycleRejected  = "rejected"
)

// Collector is a prometheus.Collector for the decision loop.
type Collector struct {
	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
	outcomes *prometheus.CounterVec
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "irrigation",
				Subsystem: "engine",
				Name:      "cycles_total",
				Help:      "Decision cycles, by result.",
			}, []string{"result"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "irrigation",
				Subsystem: "engine",
				Name:      "cycle_duration_seconds",
				Help:      "Wall time of decision cycles that ran.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "irrigation",
				Subsystem: "engine",
				Name:      "device_outcomes_total",
				Help:      "Per-device cycle outcomes.",
			}, []string{"outcome"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.cycles.Describe(ch)
	c.duration.Describe(ch)
	c.outcomes.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.cycles.Collect(ch)
	c.duration.Collect(ch)
	c.outcomes.Collect(ch)
}

func (c *Collector) observeCycle(result string, seconds float64) {
	if c == nil {
		return
	}
	c.cycles.WithLabelValues(result).Inc()
	if result != cycleRejected {
		c.duration.Observe(seconds)
	}
}

func (c *Collector) observeOutcome(o Outcome) {
	if c == nil {
		return
	}
	c.outcomes.WithLabelValues(string(o)).Inc()
}
