package config

import "errors"

var (
	// ErrConfigMissing is returned when a required setting is empty.
	ErrConfigMissing = errors.New("config: required setting missing")

	// ErrConfigInvalid is returned when a setting has an unusable value.
	ErrConfigInvalid = errors.New("config: invalid setting")
)
