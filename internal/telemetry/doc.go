// Package telemetry ingests and stores device sensor readings.
//
// Devices publish {client_id, temperature, humidity} on
// <prefix>/measurements. The Ingester decodes each message, drops
// malformed payloads and QoS 1 redeliveries, and appends a Record to the
// configured Store. The decision engine reads the newest record per
// device through Store.Latest.
//
// Two Store implementations exist:
//
//   - SQLiteStore: the default, in the core's SQLite database
//   - InfluxStore: the device_measurements measurement in InfluxDB,
//     tagged by client_id
//
// Records are append-only. Writing the same reading twice only adds a
// row; Latest still returns a reading the device actually sent.
package telemetry
