// Package dispatch publishes watering commands to devices.
//
// Every device subscribes to the shared <prefix>/decisions topic and acts
// only on commands carrying its own client_id.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// QoS for watering commands. Commands are never retained so a device
// that reconnects later does not water on a stale decision.
const commandQoS = 1

// ErrDispatchFailed wraps publish failures.
var ErrDispatchFailed = errors.New("dispatch: publish failed")

// Publisher is the subset of the MQTT client used for commands.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Command is the wire format on the decision topic.
type Command struct {
	ClientID string `json:"client_id"`
}

// Dispatcher sends water commands.
type Dispatcher struct {
	pub   Publisher
	topic string
}

// New creates a Dispatcher publishing on topic (normally Topics().Decisions()).
func New(pub Publisher, topic string) *Dispatcher {
	return &Dispatcher{pub: pub, topic: topic}
}

// Dispatch publishes {"client_id": deviceID} with QoS 1.
//
// It returns when the broker acknowledges or ctx ends, whichever comes
// first. A publish abandoned on ctx is left to the MQTT client's own
// timeout and may still be delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, deviceID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	payload, err := json.Marshal(Command{ClientID: deviceID})
	if err != nil {
		return fmt.Errorf("%w: encoding command: %w", ErrDispatchFailed, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.pub.Publish(d.topic, payload, commandQoS, false)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrDispatchFailed, ctx.Err())
	}
}
