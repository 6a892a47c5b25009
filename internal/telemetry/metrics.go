package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Ingestion results, used as the "result" label.
const (
	ResultStored       = "stored"
	ResultDuplicate    = "duplicate"
	ResultDecodeFailed = "decode_failed"
	ResultStoreFailed  = "store_failed"
)

// Collector is a prometheus.Collector for the ingestion loop.
type Collector struct {
	messages *prometheus.CounterVec
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "irrigation",
				Subsystem: "ingestion",
				Name:      "messages_total",
				Help:      "Measurement messages received, by result.",
			}, []string{"result"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.messages.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.messages.Collect(ch)
}

func (c *Collector) observe(result string) {
	if c == nil {
		return
	}
	c.messages.WithLabelValues(result).Inc()
}
