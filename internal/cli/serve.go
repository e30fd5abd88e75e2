package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/relay-sequencer/internal/api"
	"github.com/nerrad567/relay-sequencer/internal/controller"
	"github.com/nerrad567/relay-sequencer/internal/infrastructure/config"
	"github.com/nerrad567/relay-sequencer/internal/infrastructure/database"
	"github.com/nerrad567/relay-sequencer/internal/infrastructure/influxdb"
	"github.com/nerrad567/relay-sequencer/internal/infrastructure/logging"
	"github.com/nerrad567/relay-sequencer/internal/infrastructure/mqtt"
	"github.com/nerrad567/relay-sequencer/internal/output"
	"github.com/nerrad567/relay-sequencer/internal/preferences"
	"github.com/nerrad567/relay-sequencer/internal/sequence"
	"github.com/nerrad567/relay-sequencer/migrations"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions, info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sequencer",
		Long: `Run the sequencer until interrupted.

Loads the configuration, opens the preference database, drives the relay
outputs and serves the control page, /status and /rpc. MQTT and InfluxDB
are started when enabled in the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), rootOpts, info)
		},
	}
}

// runServe is the service lifecycle: start everything, wait for ctx, then
// release resources in reverse order.
//
// Parameters:
//   - ctx: Context cancelled on shutdown signals
//   - opts: Global flags (config path)
//   - info: Build information for logs and /api/v1/health
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func runServe(ctx context.Context, opts *RootOptions, info BuildInfo) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting relay sequencer",
		"version", info.Version,
		"commit", info.Commit,
		"build_date", info.Date,
	)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitFailure, "loading config", err)
	}

	log = logging.New(cfg.Logging, info.Version).With("device", cfg.Device.ID)
	log.Info("configuration loaded",
		"path", opts.ConfigPath,
		"driver", cfg.Outputs.Driver,
		"channels", cfg.Outputs.Channels,
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Device.ID)
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
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Relay outputs
	sink, closeSink, err := openSink(cfg, mqttClient, log)
	if err != nil {
		return fmt.Errorf("opening outputs: %w", err)
	}
	defer func() {
		if closeErr := closeSink.Close(); closeErr != nil {
			log.Error("error closing outputs", "error", closeErr)
		}
	}()

	trigger, err := output.ParseLevel(cfg.Outputs.Trigger)
	if err != nil {
		return fmt.Errorf("outputs.trigger: %w", err)
	}

	ctrl, err := controller.New(ctx, controller.Options{
		Catalog:      sequence.NewCatalog(cfg.Outputs.Channels),
		Output:       output.NewMapping(trigger, cfg.Outputs.Channels, sink),
		Store:        preferences.NewPlayerDefaults(preferences.NewSQLiteRepository(db.DB)),
		Logger:       log,
		PollInterval: cfg.GetPollInterval(),
	})
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}

	// Observers must be registered before the control loop starts.
	if mqttClient != nil {
		bridge := controller.NewMQTTBridge(ctrl, mqttClient, log)
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			bridge.Republish()
		})
	}
	if influxClient != nil {
		ctrl.Observe(controller.HistoryObserver(influxClient, cfg.Device.ID))
	}

	deps := api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log,
		Controller: ctrl,
		DB:         db,
		Version:    info.Version,
	}
	// Only set when present; a nil *Client in an interface is not nil.
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	if influxClient != nil {
		deps.Influx = influxClient
	}
	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if cfg.Security.JWT.Secret == "" {
		log.Warn("security.jwt.secret is empty, /rpc accepts unauthenticated commands")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("serving: %w", err)
	}

	log.Info("relay sequencer stopped")
	return nil
}

// openSink builds the output driver named in the configuration.
//
// Returns:
//   - output.Sink: The per-channel writer
//   - io.Closer: Releases the driver's resources (a no-op for log and mqtt)
//   - error: If the driver cannot be opened
func openSink(cfg *config.Config, mqttClient *mqtt.Client, log *logging.Logger) (output.Sink, io.Closer, error) {
	switch cfg.Outputs.Driver {
	case config.DriverGPIO:
		trigger, err := output.ParseLevel(cfg.Outputs.Trigger)
		if err != nil {
			return nil, nil, err
		}
		gpio, err := output.OpenGPIO(cfg.Outputs.GPIO.Chip, cfg.Outputs.GPIO.Lines, trigger.Invert())
		if err != nil {
			return nil, nil, err
		}
		log.Info("GPIO outputs ready", "chip", cfg.Outputs.GPIO.Chip, "lines", cfg.Outputs.GPIO.Lines)
		return gpio, gpio, nil

	case config.DriverMQTT:
		if mqttClient == nil {
			return nil, nil, fmt.Errorf("the mqtt driver requires mqtt.enabled")
		}
		topics := mqttClient.Topics()
		sink := output.NewMQTTSink(mqttClient, cfg.Outputs.Channels, mqttClient.QoS(), topics.Output)
		log.Info("MQTT outputs ready", "topic", topics.AllOutputs())
		return sink, nopCloser{}, nil

	default:
		rec := output.NewRecorder(cfg.Outputs.Channels)
		rec.SetLogger(log)
		log.Info("log outputs ready, no relays will switch")
		return rec, nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
