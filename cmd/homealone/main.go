// HomeAlone - presence simulation for relay-controlled lighting
//
// This is the main entry point for the HomeAlone daemon. It loads the
// scheduled jobs, fires them at their cron times (with a random jitter so
// the house does not look automated) and delivers each action to the relay
// controller over TCP. Optional MQTT, InfluxDB and HTTP surfaces expose the
// same dispatch path to other systems.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/homealone/internal/api"
	"github.com/nerrad567/homealone/internal/dispatch"
	"github.com/nerrad567/homealone/internal/history"
	"github.com/nerrad567/homealone/internal/infrastructure/config"
	"github.com/nerrad567/homealone/internal/infrastructure/database"
	"github.com/nerrad567/homealone/internal/infrastructure/influxdb"
	"github.com/nerrad567/homealone/internal/infrastructure/logging"
	"github.com/nerrad567/homealone/internal/infrastructure/mqtt"
	"github.com/nerrad567/homealone/internal/relay"
	"github.com/nerrad567/homealone/internal/schedule"
	"github.com/nerrad567/homealone/migrations"
)

// Version information, set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// shutdownTimeout bounds how long in-flight jobs get to finish.
const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the daemon together and blocks until ctx is cancelled.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting HomeAlone",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.PathFromEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"controller", fmt.Sprintf("%s:%d", cfg.Controller.Host, cfg.Controller.Port),
	)

	// Send history
	db, err := database.Open(cfg.Database)
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
	historyRepo := history.NewSQLiteRepository(db.DB)
	journal, err := db.JournalMode(ctx)
	if err != nil {
		return err
	}
	log.Info("database ready", "path", db.Path(), "journal_mode", journal)

	opts := dispatch.Options{
		History: historyRepo,
		Logger:  log.Component("dispatch"),
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		opts.Publisher = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
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
		opts.Metrics = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket event stream, served by the API
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.API.WebSocket, log)
		go hub.Run(ctx)
		opts.Events = hub
	}

	sender, err := relay.NewSender(relay.SenderConfig{
		Host:              cfg.Controller.Host,
		Port:              cfg.Controller.Port,
		MaxRetries:        cfg.Controller.MaxRetries,
		RetryInterval:     cfg.GetRetryInterval(),
		TimeoutPerAttempt: cfg.GetTimeoutPerAttempt(),
	})
	if err != nil {
		return fmt.Errorf("creating sender: %w", err)
	}
	sender.SetLogger(log.Component("relay"))

	dispatcher := dispatch.New(sender, opts)

	if mqttClient != nil {
		bridge := dispatch.NewCommandBridge(dispatcher, mqttClient, mqttClient.QoS(), log.Component("mqtt-bridge"))
		if startErr := bridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT command bridge: %w", startErr)
		}
		defer bridge.Wait()
	}

	scheduler, err := startScheduler(cfg.Schedule, dispatcher, log)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if stopErr := scheduler.Stop(stopCtx); stopErr != nil {
				log.Error("error stopping scheduler", "error", stopErr)
			}
		}()
	}

	// HTTP API (optional)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:     cfg.API,
			Logger:     log.Component("api"),
			Dispatcher: dispatcher,
			History:    historyRepo,
			Stats:      sender,
			Hub:        hub,
			Version:    version,
		}
		if scheduler != nil {
			deps.Jobs = scheduler
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}

		server, apiErr := api.New(deps)
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

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred cleanup runs in reverse: API, scheduler, MQTT bridge, InfluxDB, MQTT, database.
	return nil
}

// startScheduler loads the jobs file and starts firing jobs. It returns a
// nil scheduler when no jobs file is configured.
func startScheduler(cfg config.ScheduleConfig, exec dispatch.Executor, log *logging.Logger) (*schedule.Scheduler, error) {
	if cfg.JobsFile == "" {
		log.Info("scheduler disabled: no jobs file configured")
		return nil, nil //nolint:nilnil // absence is not an error
	}

	jobs, err := schedule.LoadJobs(cfg.JobsFile, cfg.Separator)
	if err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}
	if len(jobs) == 0 {
		log.Warn("jobs file contains no jobs", "path", cfg.JobsFile)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", cfg.Timezone, err)
	}

	scheduler, err := schedule.New(exec, jobs, schedule.Options{
		Location: loc,
		Logger:   log.Component("schedule"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("starting scheduler: %w", err)
	}

	for _, job := range scheduler.Jobs() {
		next, _ := scheduler.Next(job.ID)
		log.Info("job scheduled",
			"job_id", job.ID,
			"cron", job.Cron,
			"relay", job.Relay.String(),
			"action", job.Action.String(),
			"jitter_seconds", job.JitterSeconds(),
			"description", job.Description,
			"next_run", next,
		)
	}

	return scheduler, nil
}

// healthCheck verifies every configured connection. Nil clients are skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	var errs []error

	if err := db.HealthCheck(ctx); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mqtt: %w", err))
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("influxdb: %w", err))
		}
	}

	return errors.Join(errs...)
}
