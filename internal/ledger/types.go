package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReasonQuotaExceeded is recorded when the daily cap suppressed a decision.
const ReasonQuotaExceeded = "quota exceeded"

// ErrStoreFailed wraps any backend failure.
var ErrStoreFailed = errors.New("ledger: store failed")

// Features is the model input snapshot a decision was made from.
type Features struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	RainChance  float64 `json:"rain_chance"`
	SunHours    float64 `json:"sun_hours"`
}

// Decision is one ledger entry.
//
// A model decision carries Features and Probability. A suppressed
// decision carries only Reason.
type Decision struct {
	ID          string    `json:"id"`
	CycleID     string    `json:"cycle_id,omitempty"`
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	Watered     bool      `json:"decision"`
	Reason      string    `json:"reason,omitempty"`
	Features    *Features `json:"features,omitempty"`
	Probability *float64  `json:"probability,omitempty"`
}

// NewModelDecision builds a decision from a model result.
func NewModelDecision(cycleID, deviceID string, ts time.Time, watered bool, features Features, probability float64) Decision {
	return Decision{
		ID:          uuid.NewString(),
		CycleID:     cycleID,
		DeviceID:    deviceID,
		Timestamp:   ts.UTC(),
		Watered:     watered,
		Features:    &features,
		Probability: &probability,
	}
}

// NewQuotaDecision builds the "quota exceeded" decision.
func NewQuotaDecision(cycleID, deviceID string, ts time.Time) Decision {
	return Decision{
		ID:        uuid.NewString(),
		CycleID:   cycleID,
		DeviceID:  deviceID,
		Timestamp: ts.UTC(),
		Watered:   false,
		Reason:    ReasonQuotaExceeded,
	}
}

// Ledger is append-only decision storage.
// Implementations must be safe for concurrent use.
type Ledger interface {
	// Record appends a decision. Errors wrap ErrStoreFailed.
	Record(ctx context.Context, d Decision) error

	// CountWatered counts decisions with Watered=true for deviceID whose
	// timestamp lies in [from, to).
	CountWatered(ctx context.Context, deviceID string, from, to time.Time) (int, error)

	// List returns decisions for deviceID at or after since, oldest first.
	List(ctx context.Context, deviceID string, since time.Time) ([]Decision, error)
}
