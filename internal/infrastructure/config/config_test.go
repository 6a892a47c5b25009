package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes content to a config.yaml in a fresh temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
  topics:
    prefix: "garden"
engine:
  interval: 30m
  daily_cap: 2
  call_timeout: 5s
  reference_timezone: "Europe/Athens"
model:
  weights_path: "/etc/irrigation/model.json"
api:
  host: "0.0.0.0"
  port: 8080
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.MQTT.Topics.Prefix != "garden" {
		t.Errorf("MQTT.Topics.Prefix = %q, want %q", cfg.MQTT.Topics.Prefix, "garden")
	}
	if cfg.Engine.Interval != 30*time.Minute {
		t.Errorf("Engine.Interval = %v, want 30m", cfg.Engine.Interval)
	}
	if cfg.Engine.DailyCap != 2 {
		t.Errorf("Engine.DailyCap = %d, want 2", cfg.Engine.DailyCap)
	}
	if cfg.Engine.CallTimeout != 5*time.Second {
		t.Errorf("Engine.CallTimeout = %v, want 5s", cfg.Engine.CallTimeout)
	}

	loc, err := cfg.ReferenceLocation()
	if err != nil {
		t.Fatalf("ReferenceLocation() error = %v", err)
	}
	if loc.String() != "Europe/Athens" {
		t.Errorf("ReferenceLocation() = %q, want Europe/Athens", loc.String())
	}

	// Untouched sections keep their defaults
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, BackendSQLite)
	}
	if cfg.Forecast.URL == "" {
		t.Error("Forecast.URL should keep its default")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: ""
model:
  weights_path: ""
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for empty required settings, got nil")
	}
	if !errors.Is(err, ErrConfigMissing) {
		t.Errorf("Load() error = %v, want ErrConfigMissing", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
engine:
  interval: "soon"
`)

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected error for unparseable duration, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantMissing bool
		wantInvalid bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:        "missing site id",
			mutate:      func(c *Config) { c.Site.ID = "" },
			wantMissing: true,
		},
		{
			name:        "missing topic prefix",
			mutate:      func(c *Config) { c.MQTT.Topics.Prefix = "" },
			wantMissing: true,
		},
		{
			name:        "invalid QoS",
			mutate:      func(c *Config) { c.MQTT.QoS = 3 },
			wantInvalid: true,
		},
		{
			name:        "zero interval",
			mutate:      func(c *Config) { c.Engine.Interval = 0 },
			wantInvalid: true,
		},
		{
			name:        "zero daily cap",
			mutate:      func(c *Config) { c.Engine.DailyCap = 0 },
			wantInvalid: true,
		},
		{
			name:        "zero call timeout",
			mutate:      func(c *Config) { c.Engine.CallTimeout = 0 },
			wantInvalid: true,
		},
		{
			name:        "unknown reference timezone",
			mutate:      func(c *Config) { c.Engine.ReferenceTimezone = "Mars/Olympus" },
			wantInvalid: true,
		},
		{
			name:        "empty reference timezone",
			mutate:      func(c *Config) { c.Engine.ReferenceTimezone = "" },
			wantMissing: true,
		},
		{
			name:        "unknown storage backend",
			mutate:      func(c *Config) { c.Storage.Backend = "postgres" },
			wantInvalid: true,
		},
		{
			name:        "influx backend while influx disabled",
			mutate:      func(c *Config) { c.Storage.Backend = BackendInfluxDB },
			wantInvalid: true,
		},
		{
			name: "influx enabled without token",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://127.0.0.1:8086"
				c.InfluxDB.Org = "garden"
				c.InfluxDB.Bucket = "irrigation"
			},
			wantMissing: true,
		},
		{
			name: "influx backend fully configured",
			mutate: func(c *Config) {
				c.Storage.Backend = BackendInfluxDB
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://127.0.0.1:8086"
				c.InfluxDB.Org = "garden"
				c.InfluxDB.Bucket = "irrigation"
				c.InfluxDB.Token = "token"
			},
		},
		{
			name:        "threshold out of range",
			mutate:      func(c *Config) { c.Model.Threshold = 1 },
			wantInvalid: true,
		},
		{
			name:        "bad API port",
			mutate:      func(c *Config) { c.API.Port = 0 },
			wantInvalid: true,
		},
		{
			name: "bad API port ignored when API disabled",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if got := errors.Is(err, ErrConfigMissing); got != tt.wantMissing {
				t.Errorf("Validate() missing = %v, want %v (err = %v)", got, tt.wantMissing, err)
			}
			if got := errors.Is(err, ErrConfigInvalid); got != tt.wantInvalid {
				t.Errorf("Validate() invalid = %v, want %v (err = %v)", got, tt.wantInvalid, err)
			}
			if !tt.wantMissing && !tt.wantInvalid && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("IRRIGATION_DATABASE_PATH", "/custom/path.db")
	t.Setenv("IRRIGATION_MQTT_HOST", "mqtt.example.com")
	t.Setenv("IRRIGATION_MQTT_USERNAME", "testuser")
	t.Setenv("IRRIGATION_MQTT_PASSWORD", "testpass")
	t.Setenv("IRRIGATION_MQTT_TOPIC_PREFIX", "orchard")
	t.Setenv("IRRIGATION_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("IRRIGATION_STORAGE_BACKEND", BackendInfluxDB)
	t.Setenv("IRRIGATION_ENGINE_INTERVAL", "15m")
	t.Setenv("IRRIGATION_ENGINE_DAILY_CAP", "5")
	t.Setenv("IRRIGATION_ENGINE_REFERENCE_TIMEZONE", "America/New_York")
	t.Setenv("IRRIGATION_FORECAST_URL", "http://forecast.local/v1")
	t.Setenv("IRRIGATION_MODEL_WEIGHTS_PATH", "/models/net.json")
	t.Setenv("IRRIGATION_API_HOST", "192.168.1.1")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	checks := []struct {
		field string
		got   any
		want  any
	}{
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"MQTT.Topics.Prefix", cfg.MQTT.Topics.Prefix, "orchard"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Storage.Backend", cfg.Storage.Backend, BackendInfluxDB},
		{"Engine.Interval", cfg.Engine.Interval, 15 * time.Minute},
		{"Engine.DailyCap", cfg.Engine.DailyCap, 5},
		{"Engine.ReferenceTimezone", cfg.Engine.ReferenceTimezone, "America/New_York"},
		{"Forecast.URL", cfg.Forecast.URL, "http://forecast.local/v1"},
		{"Model.WeightsPath", cfg.Model.WeightsPath, "/models/net.json"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.field, c.got, c.want)
		}
	}
}

func TestApplyEnvOverrides_BadValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"IRRIGATION_ENGINE_INTERVAL", "hourly"},
		{"IRRIGATION_ENGINE_DAILY_CAP", "three"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if err := applyEnvOverrides(defaultConfig()); err == nil {
				t.Errorf("applyEnvOverrides() with %s=%q expected error", tt.key, tt.value)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Engine.Interval != time.Hour {
		t.Errorf("defaultConfig Engine.Interval = %v, want 1h", cfg.Engine.Interval)
	}
	if cfg.Engine.DailyCap != 3 {
		t.Errorf("defaultConfig Engine.DailyCap = %d, want 3", cfg.Engine.DailyCap)
	}
	if cfg.Engine.ReferenceTimezone != "UTC" {
		t.Errorf("defaultConfig Engine.ReferenceTimezone = %q, want UTC", cfg.Engine.ReferenceTimezone)
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("defaultConfig MQTT.QoS = %d, want 1", cfg.MQTT.QoS)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
}
