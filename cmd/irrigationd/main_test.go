package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/irrigation-core/internal/infrastructure/config"
	"github.com/nerrad567/irrigation-core/internal/infrastructure/database"
	"github.com/nerrad567/irrigation-core/internal/ledger"
	"github.com/nerrad567/irrigation-core/internal/telemetry"
)

// writeConfig writes a config file and points IRRIGATION_CONFIG at it.
func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("IRRIGATION_CONFIG", path)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("IRRIGATION_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config failure", err)
	}
}

// TestRun_MissingModel verifies run fails before connecting anywhere when
// the weights file is missing.
func TestRun_MissingModel(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, `
site:
  id: test-site
database:
  path: "`+filepath.Join(dir, "test.db")+`"
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
    client_id: "test-client"
model:
  weights_path: "`+filepath.Join(dir, "missing.json")+`"
api:
  enabled: false
logging:
  level: error
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with a missing model file")
	}
	if !strings.Contains(err.Error(), "loading model") {
		t.Errorf("run() error = %v, want loading model failure", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "test.db")); !os.IsNotExist(statErr) {
		t.Error("database should not be opened before the model loads")
	}
}

// TestRun_InvalidEngineConfig verifies config validation stops startup.
func TestRun_InvalidEngineConfig(t *testing.T) {
	writeConfig(t, `
engine:
  daily_cap: 0
`)

	err := run(context.Background())
	if err == nil {
		t.Fatal("run() should fail with daily_cap 0")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("IRRIGATION_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("IRRIGATION_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestBuildStorage_SQLite verifies the default backend selection.
func TestBuildStorage_SQLite(t *testing.T) {
	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	cfg := &config.Config{Storage: config.StorageConfig{Backend: config.BackendSQLite}}
	store, decisions := buildStorage(cfg, db, nil)

	if _, ok := store.(*telemetry.SQLiteStore); !ok {
		t.Errorf("store = %T, want *telemetry.SQLiteStore", store)
	}
	if _, ok := decisions.(*ledger.SQLiteLedger); !ok {
		t.Errorf("ledger = %T, want *ledger.SQLiteLedger", decisions)
	}
}
