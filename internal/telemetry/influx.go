package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/irrigation-core/internal/infrastructure/influxdb"
)

const measurementName = "device_measurements"

// rangeStart is LatestLookback as a Flux relative duration.
var rangeStart = fmt.Sprintf("-%dh", int(LatestLookback/time.Hour))

// InfluxStore keeps readings in the device_measurements measurement,
// tagged by client_id, with temperature and humidity fields.
type InfluxStore struct {
	client *influxdb.Client
}

// NewInfluxStore creates a store on a connected InfluxDB client.
func NewInfluxStore(client *influxdb.Client) *InfluxStore {
	return &InfluxStore{client: client}
}

// Write appends a reading.
func (s *InfluxStore) Write(ctx context.Context, r Record) error {
	err := s.client.WritePoint(ctx, measurementName,
		map[string]string{"client_id": r.DeviceID},
		map[string]any{
			"temperature": r.Temperature,
			"humidity":    r.Humidity,
		},
		r.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	return nil
}

// Latest returns the newest reading for deviceID.
func (s *InfluxStore) Latest(ctx context.Context, deviceID string) (*Record, error) {
	flux := fmt.Sprintf(`from(bucket: %s)
  |> range(start: %s)
  |> filter(fn: (r) => r._measurement == %s and r.client_id == %s)
  |> filter(fn: (r) => r._field == "temperature" or r._field == "humidity")
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: 1)`,
		influxdb.QuoteString(s.client.Bucket()),
		rangeStart,
		influxdb.QuoteString(measurementName),
		influxdb.QuoteString(deviceID))

	result, err := s.client.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	defer result.Close() //nolint:errcheck // Read-only result

	var latest *Record
	for result.Next() {
		rec := result.Record()
		temp, tok := rec.ValueByKey("temperature").(float64)
		hum, hok := rec.ValueByKey("humidity").(float64)
		if !tok || !hok {
			continue
		}
		if latest == nil || rec.Time().After(latest.Timestamp) {
			latest = &Record{
				DeviceID:    deviceID,
				Timestamp:   rec.Time().UTC(),
				Temperature: temp,
				Humidity:    hum,
			}
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading query result: %w", ErrStoreFailed, err)
	}
	if latest == nil {
		return nil, ErrNoTelemetry
	}
	return latest, nil
}
