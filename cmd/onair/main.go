// OnAir Core - Broadcast Rundown Automation Engine
//
// This is the main entry point for the OnAir core application: the studio
// authority for rundown ingest, playout state, and timeline publication.
// Gateways subscribe to the published timeline over MQTT and resolve it
// against the wall clock; producer UIs drive playout over the REST API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/onair-core/migrations"

	"github.com/nerrad567/onair-core/internal/api"
	"github.com/nerrad567/onair-core/internal/blueprint"
	"github.com/nerrad567/onair-core/internal/gateway"
	"github.com/nerrad567/onair-core/internal/infrastructure/config"
	"github.com/nerrad567/onair-core/internal/infrastructure/database"
	"github.com/nerrad567/onair-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/onair-core/internal/infrastructure/logging"
	"github.com/nerrad567/onair-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/onair-core/internal/ingest"
	"github.com/nerrad567/onair-core/internal/lock"
	"github.com/nerrad567/onair-core/internal/playout"
	"github.com/nerrad567/onair-core/internal/rundown"
	"github.com/nerrad567/onair-core/internal/timeline"
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
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting OnAir Core",
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
	if cfg.API.JWT.Secret == "" {
		log.Warn("API JWT secret is empty, the user-action API is unauthenticated")
	}

	// Open database
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

	// Connect to MQTT broker
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
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Domain wiring
	locks := lock.NewManager()
	repo := rundown.NewSQLiteRepository(db.DB)
	timelines := timeline.NewSQLiteRepository(db.DB)
	registry := blueprint.NewRegistry()
	registerBuiltinBlueprints(registry, cfg)
	invoker := blueprint.NewInvoker(log)

	publisher := timeline.NewPublisher(timelines, retainedTransport{mqttClient}, log)

	var playoutMetrics playout.Metrics
	var ingestMetrics ingest.Metrics
	if influxClient != nil {
		playoutMetrics = influxClient
		ingestMetrics = influxClient
	}

	playoutSvc := playout.NewService(playout.Options{
		StudioID:               cfg.Studio.ID,
		StudioName:             cfg.Studio.Name,
		CoreVersion:            version,
		MultiGateway:           cfg.Studio.MultiGateway,
		AutoNextGuard:          cfg.AutoNextGuard(),
		TimingDebounce:         cfg.TimingDebounce(),
		Locks:                  locks,
		Repo:                   repo,
		Registry:               registry,
		Invoker:                invoker,
		Timelines:              timelines,
		Publisher:              publisher,
		DefaultShowStyleBaseID: cfg.Studio.DefaultShowStyleBase,
		Metrics:                playoutMetrics,
		Logger:                 log.With("component", "playout"),
	})
	defer playoutSvc.Close()

	ingestSvc := ingest.NewService(ingest.Options{
		StudioID:                  cfg.Studio.ID,
		DefaultShowStyleBaseID:    cfg.Studio.DefaultShowStyleBase,
		DefaultShowStyleVariantID: cfg.Studio.DefaultShowStyleVariant,
		Locks:                     locks,
		Repo:                      repo,
		Data:                      ingest.NewSQLiteDataRepository(db.DB),
		Registry:                  registry,
		Invoker:                   invoker,
		Notifier:                  playoutSvc,
		Metrics:                   ingestMetrics,
		Logger:                    log.With("component", "ingest"),
	})

	// Gateway liveness from retained status publications
	tracker := gateway.NewTracker()
	if err := subscribeGatewayStatus(mqttClient, tracker, cfg.MQTT.QoS); err != nil {
		return fmt.Errorf("subscribing to gateway status: %w", err)
	}

	// Playback timing reports from gateways
	if err := subscribePlaybackReports(mqttClient, playoutSvc, cfg.Studio.ID, cfg.MQTT.QoS, log); err != nil {
		return fmt.Errorf("subscribing to playback reports: %w", err)
	}

	// API server
	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		StudioID:  cfg.Studio.ID,
		Version:   version,
		Logger:    log.With("component", "api"),
		Playout:   playoutSvc,
		Ingest:    ingestSvc,
		Repo:      repo,
		Timelines: timelines,
		Gateways:  tracker,
		Broker:    mqttClient,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Relay published timelines to WebSocket subscribers
	topics := mqtt.Topics{}
	err = mqttClient.Subscribe(topics.Timeline(cfg.Studio.ID), byte(cfg.MQTT.QoS), func(_ string, payload []byte) error {
		var tl timeline.Timeline
		if unmarshalErr := json.Unmarshal(payload, &tl); unmarshalErr != nil {
			return nil
		}
		if hub := apiServer.EventHub(); hub != nil {
			hub.Broadcast(api.ChannelTimelineUpdated, map[string]any{
				"studio_id":     tl.StudioID,
				"timeline_hash": tl.Hash,
				"generation":    tl.Generation,
				"objects":       len(tl.Objects),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to timeline topic: %w", err)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Playout service (timing scheduler)
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("OnAir Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses the ONAIR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ONAIR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// retainedTransport adapts the MQTT client to the timeline publisher's
// transport. Timelines are published retained so a gateway that reconnects
// immediately receives the current state.
type retainedTransport struct {
	client *mqtt.Client
}

func (t retainedTransport) Publish(topic string, payload []byte) error {
	return t.client.PublishRetained(topic, payload)
}

// registerBuiltinBlueprints installs the default show style.
//
// The default blueprint carries no capabilities; the invoker's fallbacks
// apply (empty baseline, timeline passed through, orphaned instances
// retained, ingest payloads taken as-is). Production show styles register
// richer blueprints here.
func registerBuiltinBlueprints(registry *blueprint.Registry, cfg *config.Config) {
	registry.Register(cfg.Studio.DefaultShowStyleBase, &blueprint.Blueprint{
		Manifest: blueprint.Manifest{
			ID:      cfg.Studio.DefaultShowStyleBase,
			Name:    "Default Show Style",
			Version: version,
		},
	})
}

// playbackReport is the wire shape gateways publish on the playback topic.
type playbackReport struct {
	Event           string `json:"event"`
	PlaylistID      string `json:"playlist_id"`
	PartInstanceID  string `json:"part_instance_id,omitempty"`
	PieceInstanceID string `json:"piece_instance_id,omitempty"`
	TimeMS          int64  `json:"time_ms"`
}

// subscribePlaybackReports feeds gateway playback confirmations into the
// playout service. Reports are first-write-wins, so replays after a
// reconnect are harmless.
func subscribePlaybackReports(client *mqtt.Client, svc *playout.Service, studioID string, qos int, log *logging.Logger) error {
	topics := mqtt.Topics{}
	return client.Subscribe(topics.Playback(studioID), byte(qos), func(_ string, payload []byte) error {
		var report playbackReport
		if err := json.Unmarshal(payload, &report); err != nil {
			log.Warn("malformed playback report", "error", err)
			return nil
		}
		if report.PlaylistID == "" {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		at := time.UnixMilli(report.TimeMS)
		var err error
		switch report.Event {
		case "part.started":
			err = svc.OnPartPlaybackStarted(ctx, report.PlaylistID, report.PartInstanceID, at)
		case "part.stopped":
			err = svc.OnPartPlaybackStopped(ctx, report.PlaylistID, report.PartInstanceID, at)
		case "piece.started":
			err = svc.OnPiecePlaybackStarted(ctx, report.PlaylistID, report.PieceInstanceID, at)
		case "piece.stopped":
			err = svc.OnPiecePlaybackStopped(ctx, report.PlaylistID, report.PieceInstanceID, at)
		default:
			log.Debug("unknown playback report event", "event", report.Event)
			return nil
		}
		if err != nil {
			log.Warn("playback report rejected",
				"event", report.Event,
				"playlist", report.PlaylistID,
				"error", err,
			)
		}
		return nil
	})
}

// subscribeGatewayStatus folds gateway status publications into the tracker.
func subscribeGatewayStatus(client *mqtt.Client, tracker *gateway.Tracker, qos int) error {
	topics := mqtt.Topics{}
	return client.Subscribe(topics.AllGatewayStatuses(), byte(qos), func(topic string, payload []byte) error {
		tracker.Observe(mqtt.GatewayIDFromStatusTopic(topic), payload)
		return nil
	})
}

// healthCheck verifies all infrastructure connections are healthy.
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
