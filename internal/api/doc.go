// Package api implements the operations HTTP surface of the irrigation core.
//
// Endpoints:
//   - GET  /api/v1/health                   component health
//   - GET  /metrics                         Prometheus exposition
//   - GET  /api/v1/devices                  registered devices
//   - GET  /api/v1/devices/{id}             one device
//   - GET  /api/v1/devices/{id}/decisions   ledger entries (?since=RFC3339)
//   - POST /api/v1/cycles                   run a decision cycle now
//   - GET  /api/v1/cycles/last              report of the last finished cycle
//
// The API is read-mostly. Devices register over MQTT, not here.
package api
