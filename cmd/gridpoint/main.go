// GridPoint Core - IoT Configuration Platform
//
// This is the main entry point for the GridPoint Core service: the
// configuration package migration engine and its HTTP API. It wires
// together the SQLite-backed resource repositories, the migration engine,
// the optional MQTT event publisher and the REST server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/gridpoint-io/gridpoint-core/migrations"

	"github.com/gridpoint-io/gridpoint-core/internal/alertrule"
	"github.com/gridpoint-io/gridpoint-core/internal/api"
	"github.com/gridpoint-io/gridpoint-core/internal/asset"
	"github.com/gridpoint-io/gridpoint-core/internal/dashboard"
	"github.com/gridpoint-io/gridpoint-core/internal/devicetype"
	"github.com/gridpoint-io/gridpoint-core/internal/history"
	"github.com/gridpoint-io/gridpoint-core/internal/infrastructure/config"
	"github.com/gridpoint-io/gridpoint-core/internal/infrastructure/database"
	"github.com/gridpoint-io/gridpoint-core/internal/infrastructure/logging"
	"github.com/gridpoint-io/gridpoint-core/internal/infrastructure/mqtt"
	"github.com/gridpoint-io/gridpoint-core/internal/migration"
	"github.com/gridpoint-io/gridpoint-core/internal/schema"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting GridPoint Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
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
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Build the migration engine over the SQLite repositories
	engine := migration.NewEngine(migration.Stores{
		Schemas:     schema.NewSQLiteRepository(db.DB),
		DeviceTypes: devicetype.NewSQLiteRepository(db.DB),
		Dashboards:  dashboard.NewSQLiteRepository(db.DB),
		AlertRules:  alertrule.NewSQLiteRepository(db.DB),
		Assets:      asset.NewSQLiteRepository(db.DB),
	})
	engine.SetLogger(log)
	log.Info("migration engine initialised")

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Start API server
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Engine:  engine,
		History: history.NewSQLiteRepository(db.DB),
		MQTT:    mqttClient,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. MQTT (if enabled)
	// 3. Database

	log.Info("GridPoint Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRIDPOINT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRIDPOINT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	return nil
}
