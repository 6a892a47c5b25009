package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nerrad567/irrigation-core/internal/infrastructure/config"
	"github.com/nerrad567/irrigation-core/internal/infrastructure/influxdb"
)

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

func TestInfluxLedger_CountAndList(t *testing.T) {
	l := NewInfluxLedger(connectInfluxOrSkip(t))
	ctx := context.Background()
	id := fmt.Sprintf("ledger-test-%d", time.Now().UnixNano())
	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	f := Features{Temperature: 30, Humidity: 20, RainChance: 0, SunHours: 12}
	for i, d := range []Decision{
		NewModelDecision("c1", id, start.Add(1*time.Minute), true, f, 0.9),
		NewModelDecision("c2", id, start.Add(2*time.Minute), false, f, 0.1),
		NewQuotaDecision("c3", id, start.Add(3*time.Minute)),
		NewModelDecision("c4", id, start.Add(4*time.Minute), true, f, 0.7),
	} {
		if err := l.Record(ctx, d); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}

	count, err := l.CountWatered(ctx, id, start, time.Now().UTC())
	if err != nil {
		t.Fatalf("CountWatered() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountWatered() = %d, want 2", count)
	}

	decisions, err := l.List(ctx, id, start)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(decisions) != 4 {
		t.Fatalf("List() returned %d, want 4", len(decisions))
	}
	if decisions[2].Reason != ReasonQuotaExceeded || decisions[2].Features != nil {
		t.Errorf("decisions[2] = %+v, want quota decision", decisions[2])
	}
	if decisions[0].Probability == nil || *decisions[0].Probability != 0.9 {
		t.Errorf("decisions[0].Probability = %v", decisions[0].Probability)
	}
}
