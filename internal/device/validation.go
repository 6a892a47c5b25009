package device

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxIDLength bounds client IDs. MQTT 3.1.1 allows 23 bytes but most
// brokers accept far longer; this keeps topic filters and logs sane.
const MaxIDLength = 128

// Validate checks that a device can be registered.
//
// Returns:
//   - error: wrapping ErrInvalidDevice describing the first problem found
func Validate(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrInvalidDevice)
	}

	id := strings.TrimSpace(d.ID)
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}
	if id != d.ID {
		return fmt.Errorf("%w: id has surrounding whitespace", ErrInvalidDevice)
	}
	if len(d.ID) > MaxIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", ErrInvalidDevice, MaxIDLength)
	}
	if strings.ContainsAny(d.ID, "+#/") {
		return fmt.Errorf("%w: id contains MQTT wildcard or separator", ErrInvalidDevice)
	}

	if math.IsNaN(d.Latitude) || d.Latitude < -90 || d.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidDevice, d.Latitude)
	}
	if math.IsNaN(d.Longitude) || d.Longitude < -180 || d.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidDevice, d.Longitude)
	}

	if d.Timezone == "" {
		return fmt.Errorf("%w: timezone is required", ErrInvalidDevice)
	}
	if _, err := time.LoadLocation(d.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidDevice, d.Timezone)
	}

	return nil
}

// FromRegistration converts a decoded registration payload into a Device.
// Every field is required.
func FromRegistration(r Registration) (*Device, error) {
	switch {
	case r.ClientID == nil:
		return nil, fmt.Errorf("%w: client_id missing", ErrInvalidDevice)
	case r.Latitude == nil:
		return nil, fmt.Errorf("%w: latitude missing", ErrInvalidDevice)
	case r.Longitude == nil:
		return nil, fmt.Errorf("%w: longitude missing", ErrInvalidDevice)
	case r.Timezone == nil:
		return nil, fmt.Errorf("%w: timezone missing", ErrInvalidDevice)
	}

	d := &Device{
		ID:        *r.ClientID,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Timezone:  *r.Timezone,
	}
	if err := Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}
