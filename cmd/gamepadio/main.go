// gamepad-io relays game controller input to remote subscribers.
//
// Capture events arrive over MQTT, the relay engine keeps the controller
// registry and routes changed state to WebSocket subscribers grouped by
// controller. Input samples and lifecycle events can additionally be
// recorded to InfluxDB and Kafka.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gamepad-io/migrations"

	"github.com/nerrad567/gamepad-io/internal/api"
	"github.com/nerrad567/gamepad-io/internal/capture"
	"github.com/nerrad567/gamepad-io/internal/controller"
	"github.com/nerrad567/gamepad-io/internal/identity"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/config"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/database"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/influxdb"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/kafka"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/logging"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/mqtt"
	"github.com/nerrad567/gamepad-io/internal/relay"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// engineStopTimeout bounds the wait for the engine goroutine on shutdown.
const engineStopTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// healthChecker is implemented by every infrastructure component.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

type namedCheck struct {
	name    string
	checker healthChecker
}

// run wires the relay and blocks until ctx is cancelled. Errors are
// returned only for startup failures.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Linear startup sequence
	log := logging.Default()
	log.Info("starting gamepad-io",
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

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	var checks []namedCheck

	// Identity store
	store, closeStore, storeCheck, err := openIdentityStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	if storeCheck != nil {
		checks = append(checks, namedCheck{"database", storeCheck})
	}

	resolver := identity.NewResolver(store)
	resolver.SetLogger(log.With("component", "identity"))

	registry := controller.NewRegistry(resolver)
	registry.SetLogger(log.With("component", "registry"))

	engine := relay.New(relay.Config{
		QueueSize: cfg.Engine.QueueSize,
		Version:   version,
	}, registry)
	engine.SetLogger(log.With("component", "relay"))

	// Optional sinks. Collaborators must be set before the engine runs.
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		engine.SetTelemetry(influxClient)
		checks = append(checks, namedCheck{"influxdb", influxClient})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.Kafka.Enabled {
		producer, connErr := kafka.Connect(cfg.Kafka)
		if connErr != nil {
			return fmt.Errorf("connecting to Kafka: %w", connErr)
		}
		defer func() {
			log.Info("closing Kafka producer")
			if closeErr := producer.Close(); closeErr != nil {
				log.Error("error closing Kafka producer", "error", closeErr)
			}
		}()
		producer.SetOnError(func(err error) {
			log.Error("Kafka delivery error", "error", err)
		})
		engine.SetEventSink(producer)
		checks = append(checks, namedCheck{"kafka", producer})
		log.Info("Kafka producer ready", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		log.Info("Kafka disabled")
	}

	// Capture over MQTT
	var (
		bridge     *capture.Bridge
		mqttClient *mqtt.Client
	)
	if cfg.Capture.Enabled {
		var connErr error
		mqttClient, connErr = mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		checks = append(checks, namedCheck{"mqtt", mqttClient})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge = capture.NewBridge(mqttClient, engine, cfg.Capture.TopicPrefix)
		bridge.SetLogger(log.With("component", "capture"))
		engine.SetHapticSink(bridge)
	} else {
		log.Info("capture disabled, no controller input will arrive")
	}

	// The engine outlives the API so sockets can detach during shutdown.
	engineCtx, stopEngine := context.WithCancel(context.Background())
	go func() {
		if runErr := engine.Run(engineCtx); runErr != nil {
			log.Error("relay engine stopped", "error", runErr)
		}
	}()
	defer func() {
		stopEngine()
		select {
		case <-engine.Done():
			log.Info("relay engine stopped")
		case <-time.After(engineStopTimeout):
			log.Warn("relay engine did not stop in time")
		}
	}()

	if bridge != nil {
		if startErr := bridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting capture bridge: %w", startErr)
		}
		log.Info("capture bridge started", "subscriptions", mqttClient.SubscriptionCount())
		defer func() {
			log.Info("stopping capture bridge")
			if stopErr := bridge.Stop(); stopErr != nil {
				log.Warn("error stopping capture bridge", "error", stopErr)
			}
		}()
	}

	server, err := api.New(api.Deps{
		Config: cfg.API,
		WS:     cfg.WebSocket,
		Logger: log.With("component", "api"),
		Engine: engine,
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
	checks = append(checks, namedCheck{"api", server})

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	logEmptyRegistry(ctx, engine, log)

	log.Info("initialisation complete, waiting for shutdown signal", "address", server.Addr())
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API, capture, engine,
	// MQTT, Kafka, InfluxDB, identity store.
	return nil
}

// openIdentityStore opens the configured identity backend. The returned
// checker is nil for backends without a health check.
func openIdentityStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (identity.Store, func(), healthChecker, error) {
	switch cfg.Identity.Backend {
	case config.IdentityBackendFile:
		store, err := identity.OpenFileStore(cfg.Identity.File)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening identity file: %w", err)
		}
		records, err := store.List(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading identity file: %w", err)
		}
		log.Info("identity file loaded", "path", store.Path(), "records", len(records))
		return store, func() {}, nil, nil

	default:
		db, err := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening database: %w", err)
		}
		closeDB := func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}
		if err := db.Migrate(ctx); err != nil {
			closeDB()
			return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database connected", "path", cfg.Database.Path)
		return identity.NewSQLiteStore(db.DB), closeDB, db, nil
	}
}

// getConfigPath returns GAMEPADIO_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv("GAMEPADIO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck runs every check in order and stops at the first failure.
func healthCheck(ctx context.Context, checks []namedCheck) error {
	for _, c := range checks {
		if err := c.checker.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

// logEmptyRegistry logs a hint when no controller has connected yet.
func logEmptyRegistry(ctx context.Context, engine *relay.Engine, log *logging.Logger) {
	stats, err := engine.Stats(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn("could not read registry size", "error", err)
		}
		return
	}
	if stats.Controllers == 0 {
		log.Info("no controllers connected yet, press a button on a pad to wake it")
	}
}
