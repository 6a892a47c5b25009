package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const defaultRegistrationTimeout = 5 * time.Second

// RegistrationListener stores devices announced on <prefix>/register.
//
// HandleMessage matches mqtt.MessageHandler and is passed straight to
// Subscribe.
type RegistrationListener struct {
	registry *Registry
	timeout  time.Duration
	logger   Logger
}

// NewRegistrationListener creates a listener that writes to registry.
// Each message is bounded by timeout (default 5s when zero).
func NewRegistrationListener(registry *Registry, timeout time.Duration) *RegistrationListener {
	if timeout <= 0 {
		timeout = defaultRegistrationTimeout
	}
	return &RegistrationListener{
		registry: registry,
		timeout:  timeout,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the listener.
func (l *RegistrationListener) SetLogger(logger Logger) {
	l.logger = logger
}

// HandleMessage decodes a registration and stores it.
//
// Malformed payloads and conflicting re-registrations are logged and
// dropped. The returned error is informational only; the broker has
// already delivered the message.
func (l *RegistrationListener) HandleMessage(topic string, payload []byte) error {
	var reg Registration
	if err := json.Unmarshal(payload, &reg); err != nil {
		l.logger.Warn("registration dropped", "topic", topic, "error", err)
		return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	device, err := FromRegistration(reg)
	if err != nil {
		l.logger.Warn("registration rejected", "topic", topic, "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	if _, err := l.registry.Register(ctx, device); err != nil {
		if errors.Is(err, ErrDeviceExists) {
			l.logger.Warn("registration ignored, device is immutable", "id", device.ID, "error", err)
		} else {
			l.logger.Error("registration failed", "id", device.ID, "error", err)
		}
		return err
	}
	return nil
}
