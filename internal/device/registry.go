package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device lookup with an in-memory cache.
//
// The cache is populated on startup via RefreshCache() and extended as
// devices register. Because devices are immutable, a cached entry never
// goes stale.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]Device
	cacheMu sync.RWMutex

	// registerMu serialises Register so two announcements for the same
	// ID cannot both pass the existence check.
	registerMu sync.Mutex

	logger Logger
}

// NewRegistry creates a new device registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	cache := make(map[string]Device, len(devices))
	for _, d := range devices {
		cache[d.ID] = d
	}

	r.cacheMu.Lock()
	r.cache = cache
	r.cacheMu.Unlock()

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// Get retrieves a device by ID, falling back to the repository on a
// cache miss. Returns ErrDeviceNotFound if the device is not registered.
func (r *Registry) Get(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()
	if ok {
		return &cached, nil
	}

	device, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = *device
	r.cacheMu.Unlock()

	return device, nil
}

// List returns every registered device ordered by ID.
//
// The repository is the source of truth, so a device registered by
// another process is visible on the next cycle.
func (r *Registry) List(ctx context.Context) ([]Device, error) {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	r.cacheMu.Lock()
	for _, d := range devices {
		r.cache[d.ID] = d
	}
	r.cacheMu.Unlock()

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

// IDs returns the IDs of every registered device, sorted.
func (r *Registry) IDs(ctx context.Context) ([]string, error) {
	devices, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(devices))
	for i, d := range devices {
		ids[i] = d.ID
	}
	return ids, nil
}

// Register validates and stores a new device.
//
// Re-registering an identical record is a no-op and returns created=false.
// A record that differs from the stored one is rejected with
// ErrDeviceExists; the stored device is left untouched.
//
// Returns:
//   - bool: true if a new device was stored
//   - error: wrapping ErrInvalidDevice, ErrDeviceExists, or a store error
func (r *Registry) Register(ctx context.Context, device *Device) (bool, error) {
	if err := Validate(device); err != nil {
		return false, err
	}

	r.registerMu.Lock()
	defer r.registerMu.Unlock()

	existing, err := r.Get(ctx, device.ID)
	switch {
	case err == nil:
		if existing.SameLocation(device) {
			r.logger.Debug("device re-registered", "id", device.ID)
			return false, nil
		}
		return false, fmt.Errorf("%w: %s is registered with a different location", ErrDeviceExists, device.ID)
	case !errors.Is(err, ErrDeviceNotFound):
		return false, fmt.Errorf("checking existing device: %w", err)
	}

	if err := r.repo.Create(ctx, device); err != nil {
		return false, err
	}

	r.cacheMu.Lock()
	r.cache[device.ID] = *device
	r.cacheMu.Unlock()

	r.logger.Info("device registered",
		"id", device.ID,
		"latitude", device.Latitude,
		"longitude", device.Longitude,
		"timezone", device.Timezone,
	)
	return true, nil
}

// GetStats returns registry statistics from the cache.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return Stats{TotalDevices: len(r.cache)}
}
