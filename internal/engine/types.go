package engine

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/irrigation-core/internal/device"
	"github.com/nerrad567/irrigation-core/internal/forecast"
	"github.com/nerrad567/irrigation-core/internal/ledger"
	"github.com/nerrad567/irrigation-core/internal/predict"
	"github.com/nerrad567/irrigation-core/internal/telemetry"
)

var (
	// ErrCycleInProgress is returned by RunCycle when another cycle holds the run lock.
	ErrCycleInProgress = errors.New("engine: cycle already in progress")

	// ErrEnumerationFailed is returned when the device list cannot be read.
	// The cycle is aborted and no device is processed.
	ErrEnumerationFailed = errors.New("engine: device enumeration failed")
)

// Registry enumerates and looks up devices.
type Registry interface {
	IDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (*device.Device, error)
}

// TelemetryStore reads the newest reading for a device.
type TelemetryStore interface {
	Latest(ctx context.Context, deviceID string) (*telemetry.Record, error)
}

// ForecastProvider returns weather inputs for a location.
type ForecastProvider interface {
	Get(ctx context.Context, latitude, longitude float64, timezone string) (forecast.Forecast, error)
}

// Model turns features into a watering verdict.
type Model interface {
	Predict(ctx context.Context, f predict.Features) (predict.Result, error)
}

// Ledger stores decisions and counts recent waterings.
type Ledger interface {
	Record(ctx context.Context, d ledger.Decision) error
	CountWatered(ctx context.Context, deviceID string, from, to time.Time) (int, error)
}

// Dispatcher sends a water command to a device.
type Dispatcher interface {
	Dispatch(ctx context.Context, deviceID string) error
}

// Outcome is the terminal state of one device in one cycle.
type Outcome string

// Device outcomes.
const (
	OutcomeSkipped        Outcome = "skipped"
	OutcomeQuotaExceeded  Outcome = "quota_exceeded"
	OutcomeNoTelemetry    Outcome = "no_telemetry"
	OutcomeForecastFailed Outcome = "forecast_failed"
	OutcomeModelFailed    Outcome = "model_failed"
	OutcomeStoreFailed    Outcome = "store_failed"
	OutcomeDispatched     Outcome = "dispatched"
	OutcomeNotDispatched  Outcome = "not_dispatched"
	OutcomeDispatchFailed Outcome = "dispatch_failed"
)

// DecisionWritten reports whether the outcome left a ledger entry.
func (o Outcome) DecisionWritten() bool {
	switch o {
	case OutcomeQuotaExceeded, OutcomeDispatched, OutcomeNotDispatched, OutcomeDispatchFailed:
		return true
	default:
		return false
	}
}

// DeviceResult is what happened to one device.
type DeviceResult struct {
	DeviceID    string   `json:"device_id"`
	Outcome     Outcome  `json:"outcome"`
	DecisionID  string   `json:"decision_id,omitempty"`
	Probability *float64 `json:"probability,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// CycleReport summarises one cycle.
type CycleReport struct {
	ID        string         `json:"id"`
	StartedAt time.Time      `json:"started_at"`
	Boundary  time.Time      `json:"quota_window_start"`
	Devices   []DeviceResult `json:"devices"`
	Duration  time.Duration  `json:"duration_ns"`
	Cancelled bool           `json:"cancelled,omitempty"`
}

// Count returns how many devices ended in outcome o.
func (r *CycleReport) Count(o Outcome) int {
	n := 0
	for _, d := range r.Devices {
		if d.Outcome == o {
			n++
		}
	}
	return n
}

// Config tunes the engine.
type Config struct {
	// Interval between scheduled cycles. Default 1h.
	Interval time.Duration

	// DailyCap is the maximum watering decisions per device per day. Default 3.
	DailyCap int

	// CallTimeout bounds each external call. Default 10s.
	CallTimeout time.Duration

	// Location defines midnight for the quota window. Default UTC.
	Location *time.Location

	// RunOnStart runs a cycle as soon as Start is called.
	RunOnStart bool
}

// Deps are the engine's collaborators. All are required.
type Deps struct {
	Registry   Registry
	Telemetry  TelemetryStore
	Forecast   ForecastProvider
	Model      Model
	Ledger     Ledger
	Dispatcher Dispatcher
}
