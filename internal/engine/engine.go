package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/irrigation-core/internal/device"
	"github.com/nerrad567/irrigation-core/internal/forecast"
	"github.com/nerrad567/irrigation-core/internal/ledger"
	"github.com/nerrad567/irrigation-core/internal/predict"
	"github.com/nerrad567/irrigation-core/internal/telemetry"
)

// Defaults applied by New when Config fields are zero.
const (
	DefaultInterval    = time.Hour
	DefaultDailyCap    = 3
	DefaultCallTimeout = 10 * time.Second
)

// Logger is the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine runs decision cycles.
//
// Thread Safety:
//   - RunCycle is safe to call concurrently; only one call runs at a time
//     and the rest return ErrCycleInProgress.
type Engine struct {
	deps    Deps
	cfg     Config
	logger  Logger
	metrics *Collector
	now     func() time.Time

	// runMu is held for the whole of a cycle.
	runMu sync.Mutex

	lastMu sync.RWMutex
	last   *CycleReport

	cancel   context.CancelFunc
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates an Engine.
//
// Parameters:
//   - deps: Collaborators; every field must be non-nil
//   - cfg: Tuning; zero fields take the package defaults
//   - logger: Optional logger (nil discards)
//
// Returns:
//   - *Engine: Engine ready for RunCycle or Start
//   - error: If a dependency is missing or cfg is invalid
func New(deps Deps, cfg Config, logger Logger) (*Engine, error) {
	switch {
	case deps.Registry == nil:
		return nil, errors.New("engine: registry is required")
	case deps.Telemetry == nil:
		return nil, errors.New("engine: telemetry store is required")
	case deps.Forecast == nil:
		return nil, errors.New("engine: forecast provider is required")
	case deps.Model == nil:
		return nil, errors.New("engine: model is required")
	case deps.Ledger == nil:
		return nil, errors.New("engine: ledger is required")
	case deps.Dispatcher == nil:
		return nil, errors.New("engine: dispatcher is required")
	}

	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.DailyCap == 0 {
		cfg.DailyCap = DefaultDailyCap
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Interval < 0 || cfg.DailyCap < 0 || cfg.CallTimeout < 0 {
		return nil, fmt.Errorf("engine: invalid config %+v", cfg)
	}

	if logger == nil {
		logger = noopLogger{}
	}

	return &Engine{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
	}, nil
}

// SetMetrics attaches a metrics collector. Call before Start.
func (e *Engine) SetMetrics(c *Collector) {
	e.metrics = c
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// LastReport returns the most recent completed cycle report, or nil.
func (e *Engine) LastReport() *CycleReport {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	return e.last
}

// DayStart returns midnight in the reference zone for the day containing t.
func DayStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// RunCycle runs one decision cycle over every registered device.
//
// Devices are processed one at a time in registry order. Cancelling ctx
// stops the cycle before the next device; the current device completes.
//
// Returns:
//   - *CycleReport: Per-device outcomes (nil only with ErrCycleInProgress)
//   - error: ErrCycleInProgress, or wrapping ErrEnumerationFailed
func (e *Engine) RunCycle(ctx context.Context) (*CycleReport, error) {
	if !e.runMu.TryLock() {
		e.metrics.observeCycle(cycleRejected, 0)
		return nil, ErrCycleInProgress
	}
	defer e.runMu.Unlock()

	start := e.now()
	report := &CycleReport{
		ID:        uuid.NewString(),
		StartedAt: start.UTC(),
		Boundary:  DayStart(start, e.cfg.Location).UTC(),
	}

	e.logger.Info("decision cycle started", "cycle_id", report.ID)

	listCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	ids, err := e.deps.Registry.IDs(listCtx)
	cancel()
	if err != nil {
		report.Duration = e.now().Sub(start)
		e.metrics.observeCycle(cycleFailed, report.Duration.Seconds())
		e.logger.Error("decision cycle aborted", "cycle_id", report.ID, "error", err)
		return report, fmt.Errorf("%w: %w", ErrEnumerationFailed, err)
	}

	report.Devices = make([]DeviceResult, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		// The device in flight finishes even if ctx is cancelled meanwhile.
		res := e.processDevice(context.WithoutCancel(ctx), report, id)
		e.metrics.observeOutcome(res.Outcome)
		report.Devices = append(report.Devices, res)
	}

	report.Duration = e.now().Sub(start)
	result := cycleCompleted
	if report.Cancelled {
		result = cycleCancelled
	}
	e.metrics.observeCycle(result, report.Duration.Seconds())

	e.lastMu.Lock()
	e.last = report
	e.lastMu.Unlock()

	e.logger.Info("decision cycle finished",
		"cycle_id", report.ID,
		"devices", len(report.Devices),
		"dispatched", report.Count(OutcomeDispatched),
		"quota_exceeded", report.Count(OutcomeQuotaExceeded),
		"cancelled", report.Cancelled,
		"duration", report.Duration,
	)
	return report, nil
}

// processDevice runs the pipeline for one device and never returns an
// error; failures are folded into the result.
func (e *Engine) processDevice(ctx context.Context, report *CycleReport, id string) DeviceResult {
	res := DeviceResult{DeviceID: id}
	finish := func(outcome Outcome, err error) DeviceResult {
		res.Outcome = outcome
		if err != nil {
			res.Error = err.Error()
			e.logger.Warn("device decision failed",
				"cycle_id", report.ID, "device_id", id, "outcome", outcome, "error", err)
		} else {
			e.logger.Debug("device processed",
				"cycle_id", report.ID, "device_id", id, "outcome", outcome)
		}
		return res
	}

	var dev *device.Device
	err := e.call(ctx, func(ctx context.Context) (err error) {
		dev, err = e.deps.Registry.Get(ctx, id)
		return err
	})
	if errors.Is(err, device.ErrDeviceNotFound) {
		return finish(OutcomeSkipped, nil)
	}
	if err != nil {
		return finish(OutcomeStoreFailed, err)
	}

	// Quota gate. Nothing below this check runs once the cap is reached.
	var watered int
	err = e.call(ctx, func(ctx context.Context) (err error) {
		watered, err = e.deps.Ledger.CountWatered(ctx, id, report.Boundary, report.StartedAt)
		return err
	})
	if err != nil {
		return finish(OutcomeStoreFailed, err)
	}
	if watered >= e.cfg.DailyCap {
		d := ledger.NewQuotaDecision(report.ID, id, e.now())
		if err := e.call(ctx, func(ctx context.Context) error {
			return e.deps.Ledger.Record(ctx, d)
		}); err != nil {
			return finish(OutcomeStoreFailed, err)
		}
		res.DecisionID = d.ID
		return finish(OutcomeQuotaExceeded, nil)
	}

	var reading *telemetry.Record
	err = e.call(ctx, func(ctx context.Context) (err error) {
		reading, err = e.deps.Telemetry.Latest(ctx, id)
		return err
	})
	if errors.Is(err, telemetry.ErrNoTelemetry) {
		return finish(OutcomeNoTelemetry, nil)
	}
	if err != nil {
		return finish(OutcomeStoreFailed, err)
	}

	var fc forecast.Forecast
	err = e.call(ctx, func(ctx context.Context) (err error) {
		fc, err = e.deps.Forecast.Get(ctx, dev.Latitude, dev.Longitude, dev.Timezone)
		return err
	})
	if err != nil {
		return finish(OutcomeForecastFailed, err)
	}

	features := predict.Features{
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		RainChance:  fc.RainChance,
		SunHours:    fc.SunHours,
	}
	var verdict predict.Result
	err = e.call(ctx, func(ctx context.Context) (err error) {
		verdict, err = e.deps.Model.Predict(ctx, features)
		return err
	})
	if err != nil {
		return finish(OutcomeModelFailed, err)
	}

	d := ledger.NewModelDecision(report.ID, id, e.now(), verdict.Water, ledger.Features{
		Temperature: features.Temperature,
		Humidity:    features.Humidity,
		RainChance:  features.RainChance,
		SunHours:    features.SunHours,
	}, verdict.Probability)
	if err := e.call(ctx, func(ctx context.Context) error {
		return e.deps.Ledger.Record(ctx, d)
	}); err != nil {
		return finish(OutcomeStoreFailed, err)
	}
	res.DecisionID = d.ID
	res.Probability = d.Probability

	if !verdict.Water {
		return finish(OutcomeNotDispatched, nil)
	}

	// The decision is already recorded; a failed dispatch is not retried.
	if err := e.call(ctx, func(ctx context.Context) error {
		return e.deps.Dispatcher.Dispatch(ctx, id)
	}); err != nil {
		return finish(OutcomeDispatchFailed, err)
	}
	return finish(OutcomeDispatched, nil)
}

// call runs fn under the per-call timeout.
func (e *Engine) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return fn(ctx)
}

// Start begins running cycles every Interval in a background goroutine.
//
// Stop, or cancellation of ctx, ends the loop. A cycle in progress stops
// before its next device.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go e.loop(ctx)
}

// Stop ends the loop and waits for an in-flight cycle to finish its
// current device. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.done)
		if e.cancel != nil {
			e.cancel()
		}
		e.wg.Wait()
	})
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()

	if e.cfg.RunOnStart {
		e.runScheduled(ctx)
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case <-ticker.C:
			e.runScheduled(ctx)
		}
	}
}

func (e *Engine) runScheduled(ctx context.Context) {
	_, err := e.RunCycle(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
		e.logger.Info("scheduled cycle skipped, previous cycle still running")
	default:
		e.logger.Error("scheduled cycle failed", "error", err)
	}
}
