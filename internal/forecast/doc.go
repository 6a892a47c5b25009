// Package forecast fetches the weather inputs for a watering decision.
//
// Client calls the Open-Meteo forecast API for a device's location and
// timezone and returns the precipitation probability for the coming hour
// (0-100) and today's expected sunshine in hours.
//
// Every request is wrapped in a circuit breaker (sony/gobreaker). After
// a run of consecutive failures the breaker opens and calls fail fast
// with ErrCircuitOpen until the open timeout elapses, so one provider
// outage costs the engine at most one timeout per device until it trips.
package forecast
