// Package engine runs the irrigation decision loop.
//
// Once per interval the engine walks every registered device and decides
// whether to water it:
//
//	registry lookup ──absent──▶ skipped
//	      │
//	quota check (watered since midnight in the reference zone)
//	      │ ≥ cap ──▶ record "quota exceeded", no adapter calls
//	latest telemetry ──none──▶ no_telemetry
//	      │
//	forecast ──error──▶ forecast_failed
//	      │
//	model ──error──▶ model_failed
//	      │
//	record decision ──error──▶ store_failed
//	      │
//	water? ──yes──▶ dispatch ──▶ dispatched | dispatch_failed
//	      └─no──▶ not_dispatched
//
// A failure for one device is logged and the next device proceeds. Only
// a failure to enumerate devices aborts the cycle.
//
// # Concurrency
//
// At most one cycle runs at a time. A second RunCycle returns
// ErrCycleInProgress immediately instead of queueing. Cancelling the
// cycle's context stops it between devices; the device already in flight
// finishes so no half-made decision is left behind.
//
// # Quota window
//
// The day starts at midnight in a single reference timezone (UTC by
// default) for every device. The quota count covers [midnight, cycle
// start), so it sees every decision committed before the cycle began and
// none of the cycle's own writes.
package engine
