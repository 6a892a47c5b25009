package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore keeps readings in the telemetry table.
// Timestamps are stored as Unix nanoseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a store on an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Write appends a reading.
func (s *SQLiteStore) Write(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO telemetry (device_id, recorded_at, temperature, humidity)
		VALUES (?, ?, ?, ?)`,
		r.DeviceID, r.Timestamp.UnixNano(), r.Temperature, r.Humidity)
	if err != nil {
		return fmt.Errorf("%w: inserting reading: %w", ErrStoreFailed, err)
	}
	return nil
}

// Latest returns the newest reading for deviceID no older than
// LatestLookback. Ties on timestamp resolve to the last row inserted.
func (s *SQLiteStore) Latest(ctx context.Context, deviceID string) (*Record, error) {
	var r Record
	var recordedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT device_id, recorded_at, temperature, humidity
		FROM telemetry
		WHERE device_id = ? AND recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`, deviceID, s.now().Add(-LatestLookback).UnixNano()).Scan(&r.DeviceID, &recordedAt, &r.Temperature, &r.Humidity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoTelemetry
		}
		return nil, fmt.Errorf("%w: querying latest reading: %w", ErrStoreFailed, err)
	}
	r.Timestamp = time.Unix(0, recordedAt).UTC()
	return &r, nil
}
