package device

import "time"

// Device is a registered irrigation controller.
//
// Devices are immutable once registered: the location and timezone that
// drive forecasting never change under a running engine.
type Device struct {
	// ID is the device's client_id on the broker.
	ID string `json:"id"`

	// Latitude in decimal degrees, [-90, 90].
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees, [-180, 180].
	Longitude float64 `json:"longitude"`

	// Timezone is an IANA zone name (e.g. "Europe/London"), passed to the
	// forecast provider so daily values line up with the device's day.
	Timezone string `json:"timezone"`

	CreatedAt time.Time `json:"created_at"`
}

// SameLocation reports whether two records describe the same registration.
// CreatedAt is ignored.
func (d *Device) SameLocation(other *Device) bool {
	return d.ID == other.ID &&
		d.Latitude == other.Latitude &&
		d.Longitude == other.Longitude &&
		d.Timezone == other.Timezone
}

// Registration is the payload devices publish on <prefix>/register.
type Registration struct {
	ClientID  *string  `json:"client_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timezone  *string  `json:"timezone"`
}

// Stats summarises the registry for the health endpoint.
type Stats struct {
	TotalDevices int `json:"total_devices"`
}
