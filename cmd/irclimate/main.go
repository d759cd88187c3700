// IR Climate - table-driven infrared climate control
//
// This is the main entry point of the IR climate service. It drives
// air conditioners that only accept infrared commands: each device keeps its
// own notion of state, resolves that state to a learned IR code from a
// command table, and transmits the code through an IR blaster.
//
// The service wires:
//   - SQLite state persistence, history and the command audit trail
//   - MQTT command, sensor and state topics
//   - The IR bridge (one event loop for every configured device)
//   - Optional InfluxDB telemetry
//   - The REST/WebSocket API and Prometheus metrics
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-irclimate/migrations"

	"github.com/nerrad567/gray-logic-irclimate/internal/api"
	"github.com/nerrad567/gray-logic-irclimate/internal/audit"
	"github.com/nerrad567/gray-logic-irclimate/internal/bridges/ir"
	"github.com/nerrad567/gray-logic-irclimate/internal/climate"
	"github.com/nerrad567/gray-logic-irclimate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-irclimate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-irclimate/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-irclimate/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-irclimate/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-irclimate/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "IRCLIMATE_CONFIG"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// Deferred cleanups run in reverse order of startup.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting IR climate service",
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
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Load the device table before touching the network so a bad table
	// fails fast.
	irCfg, err := ir.LoadConfig(cfg.Climate.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading climate config: %w", err)
	}
	log.Info("climate config loaded",
		"path", cfg.Climate.ConfigFile,
		"devices", len(irCfg.Devices),
		"transmitter", irCfg.Transmitter.Type,
	)

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
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	mqttClient, err := mqtt.Connect(cfg.MQTT)
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

	influxClient, err := connectInfluxDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	hub := api.NewHub(cfg.WebSocket, log)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	commands := audit.NewSQLiteRepository(db.DB)

	opts := ir.BridgeOptions{
		Config:           irCfg,
		MQTTClient:       mqttClient,
		Repository:       climate.NewSQLiteRepository(db.DB),
		History:          climate.NewSQLiteHistoryRepository(db.DB),
		Audit:            commands,
		Metrics:          m,
		Broadcaster:      hub,
		Logger:           log.With("component", "ir-bridge"),
		HistoryRetention: cfg.GetHistoryRetention(),
		Version:          version,
	}
	// A nil *influxdb.Client must not become a non-nil interface.
	if influxClient != nil {
		opts.Telemetry = influxClient
	}

	bridge, err := ir.NewBridge(opts)
	if err != nil {
		return fmt.Errorf("creating IR bridge: %w", err)
	}
	// A failed Start has already stopped the bridge and closed its sender.
	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting IR bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping IR bridge")
		bridge.Stop()
	}()
	log.Info("IR bridge started", "devices", bridge.DeviceCount())
	hub.SetReplay(ir.WSChannelState, bridge.StateMessages)

	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:        cfg.API,
			WS:            cfg.WebSocket,
			MetricsConfig: cfg.Metrics,
			Logger:        log,
			Climate:       bridge,
			Metrics:       m,
			MQTT:          mqttClient,
			Database:      db,
			Audit:         commands,
			Hub:           hub,
			Version:       version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// getConfigPath returns IRCLIMATE_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectInfluxDB returns nil when InfluxDB is disabled.
func connectInfluxDB(ctx context.Context, cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil //nolint:nilnil // disabled is not an error
	}

	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// healthCheck verifies every infrastructure connection. influxClient may be nil.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
