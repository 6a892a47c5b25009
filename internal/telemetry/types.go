package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Record is one sensor reading from a device.
type Record struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"` // °C
	Humidity    float64   `json:"humidity"`    // relative, %
}

// LatestLookback bounds how far back Store.Latest searches. A device
// silent for longer has no usable reading.
const LatestLookback = 30 * 24 * time.Hour

// Store is append-only storage for readings.
// Implementations must be safe for concurrent use.
type Store interface {
	// Write appends a record. Errors wrap ErrStoreFailed.
	Write(ctx context.Context, r Record) error

	// Latest returns the newest record for a device within LatestLookback,
	// or ErrNoTelemetry. Backend errors wrap ErrStoreFailed.
	Latest(ctx context.Context, deviceID string) (*Record, error)
}

// measurement is the wire format on <prefix>/measurements.
// Pointer fields distinguish a missing value from zero.
type measurement struct {
	ClientID    *string  `json:"client_id"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// Decode parses a measurement payload into a Record stamped with receivedAt.
//
// Every field is required. Temperature must be finite and humidity must
// lie in [0, 100].
//
// Returns:
//   - Record: The decoded reading
//   - error: wrapping ErrDecodeFailed
func Decode(payload []byte, receivedAt time.Time) (Record, error) {
	var m measurement
	if err := json.Unmarshal(payload, &m); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	switch {
	case m.ClientID == nil || strings.TrimSpace(*m.ClientID) == "":
		return Record{}, fmt.Errorf("%w: client_id missing", ErrDecodeFailed)
	case m.Temperature == nil:
		return Record{}, fmt.Errorf("%w: temperature missing", ErrDecodeFailed)
	case m.Humidity == nil:
		return Record{}, fmt.Errorf("%w: humidity missing", ErrDecodeFailed)
	}

	if math.IsInf(*m.Temperature, 0) || math.IsNaN(*m.Temperature) {
		return Record{}, fmt.Errorf("%w: temperature not finite", ErrDecodeFailed)
	}
	if math.IsNaN(*m.Humidity) || *m.Humidity < 0 || *m.Humidity > 100 {
		return Record{}, fmt.Errorf("%w: humidity %v outside [0, 100]", ErrDecodeFailed, *m.Humidity)
	}

	return Record{
		DeviceID:    *m.ClientID,
		Timestamp:   receivedAt.UTC(),
		Temperature: *m.Temperature,
		Humidity:    *m.Humidity,
	}, nil
}
