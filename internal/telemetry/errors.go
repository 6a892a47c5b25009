package telemetry

import "errors"

var (
	// ErrNoTelemetry is returned by Latest when a device has never reported.
	ErrNoTelemetry = errors.New("telemetry: no readings for device")

	// ErrStoreFailed wraps any backend failure on write or read.
	ErrStoreFailed = errors.New("telemetry: store failed")

	// ErrDecodeFailed is returned for malformed measurement payloads.
	ErrDecodeFailed = errors.New("telemetry: decode failed")
)
