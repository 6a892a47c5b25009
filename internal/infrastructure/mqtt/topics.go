package mqtt

import "strings"

// Topic suffixes under the configured prefix.
//
//	<prefix>/measurements   devices -> core   {client_id, temperature, humidity}
//	<prefix>/decisions      core -> devices   {client_id}
//	<prefix>/register       devices -> core   {client_id, latitude, longitude, timezone}
//	<prefix>/system/status  core status, retained, also the LWT
const (
	suffixMeasurements = "measurements"
	suffixDecisions    = "decisions"
	suffixRegister     = "register"
	suffixSystemStatus = "system/status"
)

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "irrigation"

// Topics builds irrigation topic names under a shared prefix.
// Using these helpers keeps device firmware and the core in agreement.
//
//	topics := mqtt.NewTopics("garden")
//	topics.Decisions() // "garden/decisions"
type Topics struct {
	prefix string
}

// NewTopics returns topic builders rooted at prefix.
// Surrounding slashes are trimmed; an empty prefix falls back to DefaultPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultPrefix
	}
	return t.prefix
}

// Measurements is where devices publish sensor readings.
func (t Topics) Measurements() string {
	return t.join(suffixMeasurements)
}

// Decisions is the shared channel for watering commands. Every device
// subscribes and filters on client_id.
func (t Topics) Decisions() string {
	return t.join(suffixDecisions)
}

// Register is where devices announce their location and timezone.
func (t Topics) Register() string {
	return t.join(suffixRegister)
}

// SystemStatus carries the retained online/offline status of the core.
func (t Topics) SystemStatus() string {
	return t.join(suffixSystemStatus)
}

func (t Topics) join(suffix string) string {
	return t.Prefix() + "/" + suffix
}
