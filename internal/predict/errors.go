package predict

import "errors"

var (
	// ErrInvalidFeatures is returned before evaluation when an input is
	// NaN or infinite.
	ErrInvalidFeatures = errors.New("predict: invalid features")

	// ErrInvalidModel is returned when a weights file cannot be used.
	ErrInvalidModel = errors.New("predict: invalid model")
)
