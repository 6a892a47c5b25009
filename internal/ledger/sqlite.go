package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteLedger keeps decisions in the decisions table.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger creates a ledger on an open, migrated database.
func NewSQLiteLedger(db *sql.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db}
}

// Record appends a decision.
func (l *SQLiteLedger) Record(ctx context.Context, d Decision) error {
	var temp, hum, rain, sun, prob sql.NullFloat64
	if d.Features != nil {
		temp = sql.NullFloat64{Float64: d.Features.Temperature, Valid: true}
		hum = sql.NullFloat64{Float64: d.Features.Humidity, Valid: true}
		rain = sql.NullFloat64{Float64: d.Features.RainChance, Valid: true}
		sun = sql.NullFloat64{Float64: d.Features.SunHours, Valid: true}
	}
	if d.Probability != nil {
		prob = sql.NullFloat64{Float64: *d.Probability, Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO decisions (
			id, cycle_id, device_id, decided_at, watered, reason,
			temperature, humidity, rain_chance, sun_hours, probability
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		nullableString(d.CycleID),
		d.DeviceID,
		d.Timestamp.UnixNano(),
		boolToInt(d.Watered),
		nullableString(d.Reason),
		temp, hum, rain, sun, prob,
	)
	if err != nil {
		return fmt.Errorf("%w: inserting decision: %w", ErrStoreFailed, err)
	}
	return nil
}

// CountWatered counts watering decisions in [from, to).
func (l *SQLiteLedger) CountWatered(ctx context.Context, deviceID string, from, to time.Time) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM decisions
		WHERE device_id = ? AND watered = 1 AND decided_at >= ? AND decided_at < ?`,
		deviceID, from.UnixNano(), to.UnixNano()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting decisions: %w", ErrStoreFailed, err)
	}
	return count, nil
}

// List returns decisions at or after since, oldest first.
func (l *SQLiteLedger) List(ctx context.Context, deviceID string, since time.Time) ([]Decision, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, cycle_id, device_id, decided_at, watered, reason,
			temperature, humidity, rain_chance, sun_hours, probability
		FROM decisions
		WHERE device_id = ? AND decided_at >= ?
		ORDER BY decided_at, id`,
		deviceID, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("%w: querying decisions: %w", ErrStoreFailed, err)
	}
	defer rows.Close()

	decisions := []Decision{}
	for rows.Next() {
		var d Decision
		var cycleID, reason sql.NullString
		var decidedAt int64
		var watered int
		var temp, hum, rain, sun, prob sql.NullFloat64

		if err := rows.Scan(&d.ID, &cycleID, &d.DeviceID, &decidedAt, &watered, &reason,
			&temp, &hum, &rain, &sun, &prob); err != nil {
			return nil, fmt.Errorf("%w: scanning decision: %w", ErrStoreFailed, err)
		}

		d.CycleID = cycleID.String
		d.Reason = reason.String
		d.Timestamp = time.Unix(0, decidedAt).UTC()
		d.Watered = watered == 1
		if temp.Valid {
			d.Features = &Features{
				Temperature: temp.Float64,
				Humidity:    hum.Float64,
				RainChance:  rain.Float64,
				SunHours:    sun.Float64,
			}
		}
		if prob.Valid {
			p := prob.Float64
			d.Probability = &p
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating decisions: %w", ErrStoreFailed, err)
	}
	return decisions, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
