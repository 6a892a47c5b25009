package influxdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint writes one point and waits for the server to accept it.
//
// Parameters:
//   - measurement: The measurement name (e.g. "device_measurements")
//   - tags: Indexed, low cardinality values such as client_id
//   - fields: The data values
//   - ts: Point timestamp
//
// Returns:
//   - error: ErrNotConnected, or wrapping ErrWriteFailed
func (c *Client) WritePoint(ctx context.Context, measurement string, tags map[string]string, fields map[string]any, ts time.Time) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	point := write.NewPoint(measurement, tags, fields, ts)
	if err := c.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, measurement, err)
	}
	return nil
}

// Query runs a Flux query. The caller must Close the result.
//
// Returns:
//   - *api.QueryTableResult: Streaming result rows
//   - error: ErrNotConnected, or wrapping ErrQueryFailed
func (c *Client) Query(ctx context.Context, flux string) (*api.QueryTableResult, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return result, nil
}

var fluxEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "${", `\${`)

// QuoteString renders s as a Flux string literal.
//
//	fmt.Sprintf(`r.client_id == %s`, influxdb.QuoteString(id))
func QuoteString(s string) string {
	return `"` + fluxEscaper.Replace(s) + `"`
}

// FormatTime renders t as a Flux time literal.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
