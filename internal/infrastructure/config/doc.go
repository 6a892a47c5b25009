// Package config handles loading and validating irrigation core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with IRRIGATION_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// A required setting that is absent after defaults, file and environment have
// been applied is reported as ErrConfigMissing, which is fatal at startup.
//
// Security Considerations:
//   - Broker passwords and the InfluxDB token should come from the environment
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	loc, _ := cfg.ReferenceLocation()
package config
