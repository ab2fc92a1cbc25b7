// playbackd hosts the driver lifecycle coordinator of the playback frontend.
//
// It resolves the selected backend of every driver category, sequences
// their initialisation and teardown through a single lifecycle loop, and
// exposes the loop over HTTP, WebSocket and (optionally) MQTT.
//
// Usage:
//
//	playbackd                 run the daemon
//	playbackd hash-password   read a password on stdin, print its Argon2id hash
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/nerrad567/playback-core/migrations"

	"github.com/nerrad567/playback-core/internal/api"
	"github.com/nerrad567/playback-core/internal/auth"
	"github.com/nerrad567/playback-core/internal/backend/null"
	"github.com/nerrad567/playback-core/internal/catalog"
	"github.com/nerrad567/playback-core/internal/control"
	"github.com/nerrad567/playback-core/internal/driver"
	"github.com/nerrad567/playback-core/internal/infrastructure/config"
	"github.com/nerrad567/playback-core/internal/infrastructure/database"
	"github.com/nerrad567/playback-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/playback-core/internal/infrastructure/logging"
	"github.com/nerrad567/playback-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/playback-core/internal/journal"
	"github.com/nerrad567/playback-core/internal/lifecycle"
	"github.com/nerrad567/playback-core/internal/record"
	"github.com/nerrad567/playback-core/internal/selection"
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

// sourceDaemon tags the commands issued by the daemon itself.
const sourceDaemon = "daemon"

// shutdownTimeout bounds the DEINIT issued on shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown once ctx is cancelled.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear wiring sequence
	log := logging.Default()
	log.Info("starting playbackd",
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

	// Backend registries and the persisted selections
	backends, err := null.NewEnumerator(cfg.Backends)
	if err != nil {
		return fmt.Errorf("registering backends: %w", err)
	}
	resolver := driver.NewResolver(backends)
	resolver.SetLogger(log)

	selections, err := selection.NewStore(selection.NewSQLiteRepository(db.DB), resolver, cfg.Drivers)
	if err != nil {
		return fmt.Errorf("creating selection store: %w", err)
	}
	selections.SetLogger(log)
	if refreshErr := selections.Refresh(ctx); refreshErr != nil {
		return fmt.Errorf("loading driver selections: %w", refreshErr)
	}

	cat, err := catalog.New(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("loading core catalog: %w", err)
	}
	if core, ok := cat.Active(); ok {
		log.Info("core catalog loaded", "cores", len(cat.Cores()), "active_core", core.Name)
		if missing, _ := cat.RequiredFirmwareMissing(); missing {
			log.Warn("active core is missing required firmware", "core", core.Name, "system_dir", cat.SystemDir())
		}
	} else {
		log.Info("core catalog loaded", "cores", len(cat.Cores()))
	}

	recordings := record.NewManager(record.Options{
		Enabled:   cfg.Record.Enabled,
		OutputDir: cfg.Record.OutputDir,
		Repo:      record.NewSQLiteRepository(db.DB),
	})
	recordings.SetLogger(log)
	defer func() {
		if stopErr := recordings.StopWithReason(record.ReasonShutdown); stopErr != nil && !errors.Is(stopErr, record.ErrNotActive) {
			log.Error("error stopping recording", "error", stopErr)
		}
	}()

	journalRepo := journal.NewSQLiteRepository(db.DB)
	journalRecorder := journal.NewRecorder(journalRepo)
	journalRecorder.SetLogger(log)

	hub := api.NewHub(cfg.WebSocket, log)
	observers := lifecycle.Observers{journalRecorder, hub}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var publisher *control.StatePublisher
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

		publisher = control.NewStatePublisher(mqttClient)
		publisher.SetLogger(log)
		observers = append(observers, publisher)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		observers = append(observers, control.NewMetrics(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	coord, err := lifecycle.New(null.NewSet().Options(coordinatorOptions(cfg, backends, selections, cat, recordings, log)))
	if err != nil {
		return fmt.Errorf("creating lifecycle coordinator: %w", err)
	}
	coord.SetLogger(log)
	coord.SetObserver(observers)

	// The loop outlives ctx so shutdown can still issue DEINIT through it.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loop := lifecycle.NewLoop(coord)
	go loop.Run(loopCtx)
	go hub.Run(loopCtx)
	if publisher != nil {
		go publisher.Run(loopCtx)
	}

	if bootErr := boot(ctx, loop, log); bootErr != nil {
		return fmt.Errorf("initialising drivers: %w", bootErr)
	}
	defer shutdownDrivers(loop, log)

	if mqttClient != nil {
		listener := control.NewCommandListener(mqttClient, mqttClient, loop)
		listener.SetLogger(log)
		if startErr := listener.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT command listener: %w", startErr)
		}
	}

	operators, err := auth.NewDirectory(cfg.Security.Operators)
	if err != nil {
		return fmt.Errorf("loading operators: %w", err)
	}
	if operators.Len() == 0 {
		log.Warn("no operators configured, API login is disabled")
	}

	deps := api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Loop:        loop,
		Selections:  selections,
		Backends:    backends,
		Catalog:     cat,
		Journal:     journalRepo,
		Recordings:  recordings,
		Operators:   operators,
		DB:          db.DB,
		ExternalHub: hub,
		Version:     version,
	}
	// Assigned only when set: a nil client in the interface is not nil.
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	if influxClient != nil {
		deps.InfluxDB = influxClient
	}
	apiServer, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// API server, DEINIT, loop, InfluxDB, MQTT, recording, database.

	return nil
}

// getConfigPath returns the configuration file path.
// Uses PLAYBACK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PLAYBACK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// coordinatorOptions maps the configuration onto the coordinator's
// collaborators. The null set fills in the drivers.
func coordinatorOptions(cfg *config.Config, backends driver.Source, selections lifecycle.SelectionSource,
	cat *catalog.Catalog, recordings lifecycle.Recorder, log *logging.Logger) lifecycle.Options {
	return lifecycle.Options{
		Backends:     backends,
		Selections:   selections,
		Capabilities: cat,
		Recorder:     recordings,
		Notifier: lifecycle.NotifierFunc(func(message string, duration time.Duration) {
			log.Info("notification", "message", message, "duration", duration)
		}),
		Settings: lifecycle.Settings{
			VSync:         cfg.Video.VSync,
			ForceNonblock: cfg.Video.ForceNonblock,
			RefreshRate:   cfg.Video.RefreshRate,
			MaxTimingSkew: cfg.Audio.MaxTimingSkew,
		},
		AVInfo: lifecycle.AVInfo{
			Geometry: lifecycle.Geometry{
				BaseWidth:   cfg.AV.BaseWidth,
				BaseHeight:  cfg.AV.BaseHeight,
				MaxWidth:    cfg.AV.MaxWidth,
				MaxHeight:   cfg.AV.MaxHeight,
				AspectRatio: cfg.AV.AspectRatio,
			},
			Timing: lifecycle.Timing{
				FPS:        cfg.AV.FPS,
				SampleRate: cfg.AV.SampleRate,
			},
		},
	}
}

// boot resolves every backend and allocates all drivers.
//
// Per-category failures are logged, not fatal: a category that cannot be
// resolved stays unresolved and the rest of the set still starts.
func boot(ctx context.Context, loop *lifecycle.Loop, log *logging.Logger) error {
	requests := []lifecycle.Request{
		{Command: lifecycle.CommandInitPre, Source: sourceDaemon},
		func() lifecycle.Request {
			req := lifecycle.InitRequest(driver.SetAll)
			req.Source = sourceDaemon
			return req
		}(),
	}

	for _, req := range requests {
		res, err := loop.Submit(ctx, req)
		if err != nil {
			return fmt.Errorf("%s: %w", req.Command, err)
		}
		for _, f := range res.Failures {
			log.Warn("driver failed during startup",
				"command", req.Command.String(),
				"category", f.Category.String(),
				"error", f.Err,
			)
		}
	}

	st, err := loop.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}
	for _, d := range st.Drivers {
		log.Info("driver ready",
			"category", d.Category.String(),
			"backend", d.Backend,
			"live", d.Live,
		)
	}
	return nil
}

// shutdownDrivers issues DEINIT through the loop before it stops.
func shutdownDrivers(loop *lifecycle.Loop, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("deinitialising drivers")
	if _, err := loop.Submit(ctx, lifecycle.Request{Command: lifecycle.CommandDeinit, Source: sourceDaemon}); err != nil {
		log.Error("error deinitialising drivers", "error", err)
	}
}

// healthCheck verifies all infrastructure connections are healthy.
// The MQTT and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// hashPassword reads one password line from r and writes its PHC hash to w,
// ready for security.operators[].password_hash.
func hashPassword(r io.Reader, w io.Writer) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("password is empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}
