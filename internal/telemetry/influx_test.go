package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nerrad567/irrigation-core/internal/infrastructure/config"
	"github.com/nerrad567/irrigation-core/internal/infrastructure/influxdb"
)

// connectInfluxOrSkip connects to a local dev InfluxDB or skips.
func connectInfluxOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(context.Background(), config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:8086",
		Token:   "irrigation-dev-token",
		Org:     "irrigation",
		Bucket:  "irrigation-test",
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Skipf("InfluxDB not available, skipping integration test: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestInfluxStore_Latest(t *testing.T) {
	store := NewInfluxStore(connectInfluxOrSkip(t))
	ctx := context.Background()
	id := fmt.Sprintf("telemetry-test-%d", time.Now().UnixNano())

	if _, err := store.Latest(ctx, id); !errors.Is(err, ErrNoTelemetry) {
		t.Fatalf("Latest() on new device error = %v, want ErrNoTelemetry", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	older := Record{DeviceID: id, Timestamp: now.Add(-time.Minute), Temperature: 18, Humidity: 70}
	newer := Record{DeviceID: id, Timestamp: now, Temperature: 26, Humidity: 30}
	for _, r := range []Record{newer, older} {
		if err := store.Write(ctx, r); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	got, err := store.Latest(ctx, id)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.Temperature != newer.Temperature || got.Humidity != newer.Humidity || !got.Timestamp.Equal(newer.Timestamp) {
		t.Errorf("Latest() = %+v, want %+v", got, newer)
	}
}

func TestInfluxRangeStartMatchesLookback(t *testing.T) {
	// Both stores must agree on how stale a usable reading may be.
	if rangeStart != "-720h" {
		t.Errorf("rangeStart = %q, want -720h for a %v lookback", rangeStart, LatestLookback)
	}
}
