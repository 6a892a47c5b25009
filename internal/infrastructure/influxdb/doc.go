// Package influxdb provides InfluxDB connectivity for the irrigation core.
//
// It wraps the official influxdb-client-go v2 library and is the optional
// time-series backend for device telemetry and the decision ledger
// (storage.backend: influxdb). SQLite remains the default.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.WritePoint(ctx, "device_measurements",
//	    map[string]string{"client_id": "bed-1"},
//	    map[string]any{"temperature": 21.5, "humidity": 40.0},
//	    time.Now())
//
// # Error Handling
//
// Writes are blocking and return ErrWriteFailed. Queries return
// ErrQueryFailed. Both wrap the underlying client error.
package influxdb
