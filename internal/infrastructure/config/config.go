package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends for telemetry and the decision ledger.
const (
	BackendSQLite   = "sqlite"
	BackendInfluxDB = "influxdb"
)

// Config is the root configuration structure for the irrigation core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Storage   StorageConfig   `yaml:"storage"`
	Engine    EngineConfig    `yaml:"engine"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Model     ModelConfig     `yaml:"model"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig identifies the deployment.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Topics    MQTTTopicsConfig    `yaml:"topics"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// MQTTTopicsConfig sets the root of the irrigation topic tree.
// Devices and the core must agree on the prefix.
type MQTTTopicsConfig struct {
	Prefix string `yaml:"prefix"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Org     string        `yaml:"org"`
	Bucket  string        `yaml:"bucket"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig selects where telemetry and decisions are kept.
// The device registry always lives in SQLite.
type StorageConfig struct {
	Backend string `yaml:"backend"`
}

// EngineConfig drives the decision loop.
type EngineConfig struct {
	// Interval between decision cycles.
	// Default: 1h
	Interval time.Duration `yaml:"interval"`

	// DailyCap is the maximum number of watering decisions per device per day.
	// Default: 3
	DailyCap int `yaml:"daily_cap"`

	// CallTimeout bounds every external call made while deciding for one device.
	// Default: 10s
	CallTimeout time.Duration `yaml:"call_timeout"`

	// ReferenceTimezone is the IANA zone whose midnight starts the quota day.
	// It applies to every device regardless of the device's own timezone.
	// Default: "UTC"
	ReferenceTimezone string `yaml:"reference_timezone"`

	// RunOnStart runs a cycle immediately instead of waiting one interval.
	RunOnStart bool `yaml:"run_on_start"`
}

// ForecastConfig contains weather forecast provider settings.
type ForecastConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker around the forecast provider.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that open the breaker.
	MaxFailures uint32 `yaml:"max_failures"`

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration `yaml:"open_timeout"`

	// Interval clears the failure counts while the breaker is closed.
	Interval time.Duration `yaml:"interval"`
}

// ModelConfig locates the trained decision model.
type ModelConfig struct {
	WeightsPath string  `yaml:"weights_path"`
	Threshold   float64 `yaml:"threshold"`
}

// IngestionConfig tunes the telemetry ingestion loop.
type IngestionConfig struct {
	DedupTTL      time.Duration `yaml:"dedup_ttl"`
	DedupCapacity int           `yaml:"dedup_capacity"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: IRRIGATION_SECTION_KEY
// For example: IRRIGATION_DATABASE_PATH, IRRIGATION_ENGINE_INTERVAL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails.
//     A required setting left empty yields an error wrapping ErrConfigMissing.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Irrigation",
		},
		Database: DatabaseConfig{
			Path:        "./data/irrigation.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "irrigation-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  5,
			},
			Topics: MQTTTopicsConfig{
				Prefix: "irrigation",
			},
		},
		InfluxDB: InfluxDBConfig{
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendSQLite,
		},
		Engine: EngineConfig{
			Interval:          time.Hour,
			DailyCap:          3,
			CallTimeout:       10 * time.Second,
			ReferenceTimezone: "UTC",
		},
		Forecast: ForecastConfig{
			URL:     "https://api.open-meteo.com/v1/forecast",
			Timeout: 10 * time.Second,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenTimeout: time.Minute,
				Interval:    10 * time.Minute,
			},
		},
		Model: ModelConfig{
			WeightsPath: "./data/model.json",
			Threshold:   0.5,
		},
		Ingestion: IngestionConfig{
			DedupTTL:      10 * time.Minute,
			DedupCapacity: 10000,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: IRRIGATION_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Database
	if v := os.Getenv("IRRIGATION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("IRRIGATION_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_TOPIC_PREFIX"); v != "" {
		cfg.MQTT.Topics.Prefix = v
	}

	// InfluxDB
	if v := os.Getenv("IRRIGATION_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("IRRIGATION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Storage
	if v := os.Getenv("IRRIGATION_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}

	// Engine
	if v := os.Getenv("IRRIGATION_ENGINE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("IRRIGATION_ENGINE_INTERVAL: %w", err)
		}
		cfg.Engine.Interval = d
	}
	if v := os.Getenv("IRRIGATION_ENGINE_DAILY_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("IRRIGATION_ENGINE_DAILY_CAP: %w", err)
		}
		cfg.Engine.DailyCap = n
	}
	if v := os.Getenv("IRRIGATION_ENGINE_REFERENCE_TIMEZONE"); v != "" {
		cfg.Engine.ReferenceTimezone = v
	}

	// Forecast and model
	if v := os.Getenv("IRRIGATION_FORECAST_URL"); v != "" {
		cfg.Forecast.URL = v
	}
	if v := os.Getenv("IRRIGATION_MODEL_WEIGHTS_PATH"); v != "" {
		cfg.Model.WeightsPath = v
	}

	// API
	if v := os.Getenv("IRRIGATION_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	return nil
}

// Validate checks the configuration for missing and invalid settings.
//
// Returns:
//   - error: nil if valid. Missing required settings are reported
//     wrapping ErrConfigMissing, bad values wrapping ErrConfigInvalid.
func (c *Config) Validate() error {
	var missing, invalid []string

	if c.Site.ID == "" {
		missing = append(missing, "site.id")
	}
	if c.Database.Path == "" {
		missing = append(missing, "database.path")
	}

	// MQTT
	if c.MQTT.Broker.Host == "" {
		missing = append(missing, "mqtt.broker.host")
	}
	if c.MQTT.Broker.ClientID == "" {
		missing = append(missing, "mqtt.broker.client_id")
	}
	if c.MQTT.Topics.Prefix == "" {
		missing = append(missing, "mqtt.topics.prefix")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		invalid = append(invalid, "mqtt.qos must be 0, 1, or 2")
	}

	// Storage
	switch c.Storage.Backend {
	case BackendSQLite:
	case BackendInfluxDB:
		if !c.InfluxDB.Enabled {
			invalid = append(invalid, "storage.backend influxdb requires influxdb.enabled")
		}
	default:
		invalid = append(invalid, fmt.Sprintf("storage.backend %q must be %q or %q", c.Storage.Backend, BackendSQLite, BackendInfluxDB))
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			missing = append(missing, "influxdb.url")
		}
		if c.InfluxDB.Org == "" {
			missing = append(missing, "influxdb.org")
		}
		if c.InfluxDB.Bucket == "" {
			missing = append(missing, "influxdb.bucket")
		}
		if c.InfluxDB.Token == "" {
			missing = append(missing, "influxdb.token (set IRRIGATION_INFLUXDB_TOKEN)")
		}
	}

	// Engine
	if c.Engine.Interval <= 0 {
		invalid = append(invalid, "engine.interval must be positive")
	}
	if c.Engine.DailyCap < 1 {
		invalid = append(invalid, "engine.daily_cap must be at least 1")
	}
	if c.Engine.CallTimeout <= 0 {
		invalid = append(invalid, "engine.call_timeout must be positive")
	}
	if c.Engine.ReferenceTimezone == "" {
		missing = append(missing, "engine.reference_timezone")
	} else if _, err := time.LoadLocation(c.Engine.ReferenceTimezone); err != nil {
		invalid = append(invalid, fmt.Sprintf("engine.reference_timezone %q is not a known zone", c.Engine.ReferenceTimezone))
	}

	// Forecast and model
	if c.Forecast.URL == "" {
		missing = append(missing, "forecast.url")
	}
	if c.Model.WeightsPath == "" {
		missing = append(missing, "model.weights_path")
	}
	if c.Model.Threshold <= 0 || c.Model.Threshold >= 1 {
		invalid = append(invalid, "model.threshold must be between 0 and 1 exclusive")
	}

	// API
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		invalid = append(invalid, "api.port must be between 1 and 65535")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrConfigMissing, strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(invalid, "; ")))
	}
	return errors.Join(errs...)
}

// ReferenceLocation returns the zone that defines the quota day.
func (c *Config) ReferenceLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Engine.ReferenceTimezone)
	if err != nil {
		return nil, fmt.Errorf("%w: engine.reference_timezone: %w", ErrConfigInvalid, err)
	}
	return loc, nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
