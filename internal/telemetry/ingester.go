package telemetry

import (
	"context"
	"time"
)

const defaultWriteTimeout = 10 * time.Second

// Logger defines the logging interface used by the Ingester.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// IngesterConfig configures an Ingester.
type IngesterConfig struct {
	// WriteTimeout bounds each store write. Default 10s.
	WriteTimeout time.Duration

	// Deduper drops redelivered payloads. Nil disables deduplication.
	Deduper *Deduper

	// Metrics counts messages by result. Nil disables metrics.
	Metrics *Collector
}

// Ingester persists measurement messages.
//
// It never blocks the broker callback for longer than one store write
// and never panics on bad input; every failure is logged and dropped.
type Ingester struct {
	store   Store
	timeout time.Duration
	dedup   *Deduper
	metrics *Collector
	logger  Logger
	now     func() time.Time
}

// NewIngester creates an Ingester writing to store.
func NewIngester(store Store, cfg IngesterConfig) *Ingester {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Ingester{
		store:   store,
		timeout: timeout,
		dedup:   cfg.Deduper,
		metrics: cfg.Metrics,
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the ingester.
func (i *Ingester) SetLogger(logger Logger) {
	i.logger = logger
}

// HandleMessage matches mqtt.MessageHandler. The returned error is
// informational; the message is dropped either way.
func (i *Ingester) HandleMessage(topic string, payload []byte) error {
	record, err := Decode(payload, i.now())
	if err != nil {
		i.metrics.observe(ResultDecodeFailed)
		i.logger.Warn("measurement dropped", "topic", topic, "error", err)
		return err
	}

	if i.dedup != nil && !i.dedup.ShouldProcess(payload) {
		i.metrics.observe(ResultDuplicate)
		i.logger.Debug("duplicate measurement dropped", "device_id", record.DeviceID)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
	defer cancel()

	if err := i.store.Write(ctx, record); err != nil {
		// Unstored payloads must not block their own redelivery.
		if i.dedup != nil {
			i.dedup.Forget(payload)
		}
		i.metrics.observe(ResultStoreFailed)
		i.logger.Error("storing measurement failed", "device_id", record.DeviceID, "error", err)
		return err
	}

	i.metrics.observe(ResultStored)
	i.logger.Debug("measurement stored",
		"device_id", record.DeviceID,
		"temperature", record.Temperature,
		"humidity", record.Humidity,
	)
	return nil
}
