package mqtt

import "errors"

// Sentinel errors. Transport failures surface to callers wrapped in one of
// these; check with errors.Is.
//
//	if errors.Is(err, mqtt.ErrNotConnected) {
//	    // broker link is down, paho is reconnecting
//	}
var (
	// ErrNotConnected means the broker link is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed means the connect attempt failed or timed out.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed means the broker did not acknowledge a publish in time.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrPayloadTooLarge is returned for payloads over 1MB.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")

	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS is returned for QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
