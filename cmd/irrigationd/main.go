// irrigationd is the server-side irrigation decision engine.
//
// It ingests sensor readings and device registrations over MQTT, and once
// per interval decides for every registered device whether to water it.
// Decisions are recorded and "water" verdicts are sent back over MQTT,
// capped at a fixed number per device per day.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/nerrad567/irrigation-core/migrations"

	"github.com/nerrad567/irrigation-core/internal/api"
	"github.com/nerrad567/irrigation-core/internal/device"
	"github.com/nerrad567/irrigation-core/internal/dispatch"
	"github.com/nerrad567/irrigation-core/internal/engine"
	"github.com/nerrad567/irrigation-core/internal/forecast"
	"github.com/nerrad567/irrigation-core/internal/infrastructure/config"
	"github.com/nerrad567/irrigation-core/internal/infrastructure/database"
	"github.com/nerrad567/irrigation-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/irrigation-core/internal/infrastructure/logging"
	"github.com/nerrad567/irrigation-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/irrigation-core/internal/infrastructure/retry"
	"github.com/nerrad567/irrigation-core/internal/ledger"
	"github.com/nerrad567/irrigation-core/internal/predict"
	"github.com/nerrad567/irrigation-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting irrigation core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "storage", cfg.Storage.Backend)

	loc, err := cfg.ReferenceLocation()
	if err != nil {
		return err
	}

	// The model is loaded before any connection is made so a bad weights
	// file fails fast.
	model, err := predict.Load(cfg.Model.WeightsPath, cfg.Model.Threshold)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	log.Info("model loaded", "path", cfg.Model.WeightsPath, "threshold", model.Threshold())

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("registry"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", registry.GetStats().TotalDevices)

	policy := retry.FromReconnect(cfg.MQTT.Reconnect)
	health := map[string]api.HealthChecker{"database": db}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		err = retry.Do(ctx, policy, func(ctx context.Context) error {
			var connErr error
			influxClient, connErr = influxdb.Connect(ctx, cfg.InfluxDB)
			return connErr
		}, func(err error, next time.Duration) {
			log.Warn("InfluxDB not reachable, retrying", "error", err, "retry_in", next)
		})
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		health["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	store, decisions := buildStorage(cfg, db, influxClient)

	var mqttClient *mqtt.Client
	err = retry.Do(ctx, policy, func(context.Context) error {
		var connErr error
		mqttClient, connErr = mqtt.Connect(cfg.MQTT)
		return connErr
	}, func(err error, next time.Duration) {
		log.Warn("MQTT broker not reachable, retrying", "error", err, "retry_in", next)
	})
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	health["mqtt"] = mqttClient
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"prefix", mqttClient.Topics().Prefix(),
	)

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ingestMetrics := telemetry.NewMetricsCollector()
	metrics.MustRegister(ingestMetrics)
	ingester := telemetry.NewIngester(store, telemetry.IngesterConfig{
		WriteTimeout: cfg.Engine.CallTimeout,
		Deduper:      telemetry.NewDeduper(cfg.Ingestion.DedupTTL, cfg.Ingestion.DedupCapacity),
		Metrics:      ingestMetrics,
	})
	ingester.SetLogger(log.Component("ingestion"))

	registrations := device.NewRegistrationListener(registry, cfg.Engine.CallTimeout)
	registrations.SetLogger(log.Component("registration"))

	topics := mqttClient.Topics()
	qos := byte(cfg.MQTT.QoS)
	if err := mqttClient.Subscribe(topics.Measurements(), qos, ingester.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to measurements: %w", err)
	}
	if err := mqttClient.Subscribe(topics.Register(), qos, registrations.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to registrations: %w", err)
	}

	forecaster, err := forecast.NewClient(cfg.Forecast)
	if err != nil {
		return fmt.Errorf("creating forecast client: %w", err)
	}
	forecaster.SetLogger(log.Component("forecast"))

	eng, err := engine.New(engine.Deps{
		Registry:   registry,
		Telemetry:  store,
		Forecast:   forecaster,
		Model:      model,
		Ledger:     decisions,
		Dispatcher: dispatch.New(mqttClient, topics.Decisions()),
	}, engine.Config{
		Interval:    cfg.Engine.Interval,
		DailyCap:    cfg.Engine.DailyCap,
		CallTimeout: cfg.Engine.CallTimeout,
		Location:    loc,
		RunOnStart:  cfg.Engine.RunOnStart,
	}, log.Component("engine"))
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	engineMetrics := engine.NewMetricsCollector()
	metrics.MustRegister(engineMetrics)
	eng.SetMetrics(engineMetrics)

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:    cfg.API,
			Logger:    log.Component("api"),
			Devices:   registry,
			Decisions: decisions,
			Engine:    eng,
			Gatherer:  metrics,
			Health:    health,
			Version:   version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	eng.Start(ctx)
	defer func() {
		log.Info("stopping engine")
		eng.Stop()
	}()
	log.Info("engine started",
		"interval", cfg.Engine.Interval,
		"daily_cap", cfg.Engine.DailyCap,
		"reference_timezone", loc.String(),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: engine (finishes the device in
	// flight), API, MQTT, InfluxDB, database.
	return nil
}

// buildStorage selects the telemetry store and decision ledger backend.
func buildStorage(cfg *config.Config, db *database.DB, influxClient *influxdb.Client) (telemetry.Store, ledger.Ledger) {
	if cfg.Storage.Backend == config.BackendInfluxDB && influxClient != nil {
		return telemetry.NewInfluxStore(influxClient), ledger.NewInfluxLedger(influxClient)
	}
	return telemetry.NewSQLiteStore(db.DB), ledger.NewSQLiteLedger(db.DB)
}

// getConfigPath returns the configuration file path.
// Uses IRRIGATION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IRRIGATION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
