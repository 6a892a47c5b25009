package forecast

import "errors"

var (
	// ErrRequestFailed covers transport errors and non-2xx responses.
	ErrRequestFailed = errors.New("forecast: request failed")

	// ErrMalformedResponse is returned when the body lacks the expected
	// series or holds values outside their valid range.
	ErrMalformedResponse = errors.New("forecast: malformed response")

	// ErrCircuitOpen is returned without calling the provider while the
	// breaker is open.
	ErrCircuitOpen = errors.New("forecast: circuit open")
)
