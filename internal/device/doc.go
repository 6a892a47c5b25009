// Package device provides the device registry for the irrigation core.
//
// A device is an irrigation controller identified by its broker client_id,
// with the location and IANA timezone used to fetch its forecast.
// Devices are immutable once registered.
//
// # Components
//
//   - Registry: cached, thread-safe lookup used by the decision engine
//   - SQLiteRepository: persistence in the devices table
//   - RegistrationListener: stores devices announced on <prefix>/register
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	d, err := registry.Get(ctx, "bed-1")
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // not registered; the engine skips it
//	}
//
// # Thread Safety
//
// Registry and RegistrationListener are safe for concurrent use.
package device
