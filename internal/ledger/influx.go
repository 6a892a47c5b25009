package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/irrigation-core/internal/infrastructure/influxdb"
)

const measurementName = "decisions"

// InfluxLedger keeps decisions in the "decisions" measurement, tagged by
// client_id. The decision field is 1 or 0 so Flux can filter on it.
type InfluxLedger struct {
	client *influxdb.Client
}

// NewInfluxLedger creates a ledger on a connected InfluxDB client.
func NewInfluxLedger(client *influxdb.Client) *InfluxLedger {
	return &InfluxLedger{client: client}
}

// Record appends a decision.
func (l *InfluxLedger) Record(ctx context.Context, d Decision) error {
	fields := map[string]any{
		"decision_id": d.ID,
		"decision":    int64(boolToInt(d.Watered)),
	}
	if d.CycleID != "" {
		fields["cycle_id"] = d.CycleID
	}
	if d.Reason != "" {
		fields["reason"] = d.Reason
	}
	if d.Features != nil {
		fields["temperature"] = d.Features.Temperature
		fields["humidity"] = d.Features.Humidity
		fields["rain_chance"] = d.Features.RainChance
		fields["sun_hours"] = d.Features.SunHours
	}
	if d.Probability != nil {
		fields["probability"] = *d.Probability
	}

	err := l.client.WritePoint(ctx, measurementName,
		map[string]string{"client_id": d.DeviceID},
		fields,
		d.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	return nil
}

// CountWatered counts watering decisions in [from, to).
func (l *InfluxLedger) CountWatered(ctx context.Context, deviceID string, from, to time.Time) (int, error) {
	flux := fmt.Sprintf(`from(bucket: %s)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %s and r.client_id == %s)
  |> filter(fn: (r) => r._field == "decision" and r._value == 1)
  |> group()
  |> count()`,
		influxdb.QuoteString(l.client.Bucket()),
		influxdb.FormatTime(from), influxdb.FormatTime(to),
		influxdb.QuoteString(measurementName),
		influxdb.QuoteString(deviceID))

	result, err := l.client.Query(ctx, flux)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	defer result.Close() //nolint:errcheck // Read-only result

	var count int64
	for result.Next() {
		if v, ok := result.Record().Value().(int64); ok {
			count += v
		}
	}
	if err := result.Err(); err != nil {
		return 0, fmt.Errorf("%w: reading count: %w", ErrStoreFailed, err)
	}
	return int(count), nil
}

// List returns decisions at or after since, oldest first.
func (l *InfluxLedger) List(ctx context.Context, deviceID string, since time.Time) ([]Decision, error) {
	flux := fmt.Sprintf(`from(bucket: %s)
  |> range(start: %s)
  |> filter(fn: (r) => r._measurement == %s and r.client_id == %s)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> group()
  |> sort(columns: ["_time"])`,
		influxdb.QuoteString(l.client.Bucket()),
		influxdb.FormatTime(since),
		influxdb.QuoteString(measurementName),
		influxdb.QuoteString(deviceID))

	result, err := l.client.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	defer result.Close() //nolint:errcheck // Read-only result

	decisions := []Decision{}
	for result.Next() {
		rec := result.Record()
		d := Decision{
			DeviceID:  deviceID,
			Timestamp: rec.Time().UTC(),
		}
		d.ID, _ = rec.ValueByKey("decision_id").(string)
		d.CycleID, _ = rec.ValueByKey("cycle_id").(string)
		d.Reason, _ = rec.ValueByKey("reason").(string)
		if v, ok := rec.ValueByKey("decision").(int64); ok {
			d.Watered = v == 1
		}
		if temp, ok := rec.ValueByKey("temperature").(float64); ok {
			f := Features{Temperature: temp}
			f.Humidity, _ = rec.ValueByKey("humidity").(float64)
			f.RainChance, _ = rec.ValueByKey("rain_chance").(float64)
			f.SunHours, _ = rec.ValueByKey("sun_hours").(float64)
			d.Features = &f
		}
		if p, ok := rec.ValueByKey("probability").(float64); ok {
			d.Probability = &p
		}
		decisions = append(decisions, d)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading decisions: %w", ErrStoreFailed, err)
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].Timestamp.Before(decisions[j].Timestamp)
	})
	return decisions, nil
}
