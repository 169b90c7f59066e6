// launchsim flies simulated ascents through the failure engine and records
// them through the storage pipeline. With no subcommand it flies a batch of
// flights; subcommands work directly against the recorded data.
//
//	launchsim [flags]                    fly and record flights
//	launchsim [flags] export <ids...>    write recorded flights as JSON.gz
//	launchsim [flags] upload <files...>  post exports to the review server
//	launchsim [flags] setupdb            migrate and seed the database
//	launchsim [flags] migratebackups     push local backup DBs into Postgres
//	launchsim sites                      list known launch sites
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/cache"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/config"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/database"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/dispatcher"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/flight"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/influx"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/logging"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/model"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/monitor"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/otel"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/parser"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/sim"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/storage"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/util"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/worker"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const appName = "launchsim"

// Version information, overridden at build time via ldflags.
var (
	EngineVersion = "1.0.0"
	BuildDate     = "unknown"
)

var (
	flagConfigDir = flag.String("config", ".", "directory containing launchsim.cfg.json")
	flagFlights   = flag.Int("flights", 1, "number of flights to fly")
	flagSeed      = flag.Int64("seed", 0, "base seed for the batch, 0 picks one from the clock")
	flagCraft     = flag.String("craft", "", "craft layout file, empty flies the stock craft")
	flagSite      = flag.String("site", "", "launch site name, overrides the configured one")
	flagTag       = flag.String("tag", "", "tag recorded on each flight, overrides the configured one")
)

var (
	SessionStartTime = time.Now()

	SlogManager *logging.SlogManager
	Logger      *slog.Logger
	ZLogger     zerolog.Logger

	eventDispatcher *dispatcher.Dispatcher
	parserService   *parser.Parser
	storageBackend  storage.Backend
	workerManager   *worker.Manager
	monitorService  *monitor.Service
	influxManager   *influx.Manager
	dbManager       *database.Manager
	otelProvider    *otel.Provider

	partCache     = cache.NewPartCache()
	siteCache     = cache.NewSiteCache()
	flightContext = flight.NewContext()

	// dbInsertsPaused suspends queue draining while the in-memory fallback
	// database is being dumped to disk.
	dbInsertsPaused atomic.Bool
)

func main() {
	flag.Parse()

	if err := bootstrap(); err != nil {
		fmt.Fprintln(os.Stderr, "startup failed:", err)
		os.Exit(1)
	}

	if args := flag.Args(); len(args) > 0 {
		runSubcommand(args)
		return
	}

	if err := fly(); err != nil {
		Logger.Error("Flight batch failed", "error", err)
		shutdown()
		os.Exit(1)
	}
	shutdown()
}

// bootstrap loads configuration and stands up logging, shared by the fly
// path and every subcommand.
func bootstrap() error {
	// console-only logging first so config problems are visible
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(*flagConfigDir); err != nil {
		Logger.Warn("Config file not loaded, using defaults", "error", err)
	}

	logLevel := config.GetString("logLevel")
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	logFile, err := os.OpenFile(
		logging.LogFilePath(logsDir, appName, SessionStartTime),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	var gelf *logging.GelfHandler
	if config.GetBool("graylog.enabled") {
		gelf, err = logging.NewGelfHandler(config.GetString("graylog.address"), slog.LevelInfo)
		if err != nil {
			Logger.Warn("Graylog handler unavailable", "error", err)
			gelf = nil
		}
	}

	SlogManager.Setup(logFile, logLevel, gelf)
	Logger = SlogManager.Logger()
	ZLogger = newZerologLogger(logFile, logLevel)

	otelProvider = otel.New(otel.Config{
		Enabled:     config.GetBool("otel.enabled"),
		ServiceName: config.GetString("otel.serviceName"),
	})

	Logger.Info("Session starting",
		"version", EngineVersion,
		"buildDate", BuildDate,
		"logLevel", logLevel,
		"otelEnabled", otelProvider.Enabled())
	return nil
}

// newZerologLogger builds the zerolog logger used by the database and
// InfluxDB managers, mirroring the slog output targets.
func newZerologLogger(file io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339},
	}
	if file != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: file, TimeFormat: time.RFC3339, NoColor: true})
	}
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).With().Timestamp().Logger()
}

// initPipeline wires the recording pipeline: dispatcher, parser, storage
// backend, metrics, workers and the status monitor.
func initPipeline() error {
	var err error

	// tag every record with the active flight once recording starts
	SlogManager.SetContextProvider(func() []slog.Attr {
		f := flightContext.GetFlight()
		if f.ID == 0 {
			return nil
		}
		return []slog.Attr{
			slog.Uint64("flightId", uint64(f.ID)),
			slog.String("craft", f.CraftName),
		}
	})
	Logger = SlogManager.Logger()

	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(ZLogger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	parserService = parser.NewParser(Logger, EngineVersion)

	storageCfg := config.GetStorageConfig()
	storageBackend, err = createStorageBackend(storageCfg)
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := storageBackend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}

	if config.GetBool("influx.enabled") {
		backupPath := filepath.Join(config.GetString("logsDir"),
			fmt.Sprintf("influx_backup_%s.gz", SessionStartTime.Format("20060102_150405")))
		influxManager = influx.NewManager(ZLogger, backupPath)
		if err := influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB unavailable, metrics disabled", "error", err)
			influxManager = nil
		}
	}

	workerManager = worker.NewManager(worker.Dependencies{
		PartCache:     partCache,
		SiteCache:     siteCache,
		FlightContext: flightContext,
		LogManager:    SlogManager,
		ParserService: parserService,
		Influx:        influxManager,
	}, storageBackend)

	Logger.Debug("Registering worker handlers with dispatcher")
	workerManager.RegisterHandlers(eventDispatcher)
	registerLifecycleHandlers(eventDispatcher)
	registerMetricHandler(eventDispatcher)
	Logger.Info("Worker handlers registered with dispatcher")

	if dbManager != nil && dbManager.IsValid {
		startMonitor()
		startDumpLoop(storageCfg.SQLite.DumpInterval)
	}

	return nil
}

// registerLifecycleHandlers registers system/lifecycle command handlers with
// the dispatcher.
func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":INIT:", func(e dispatcher.Event) (any, error) {
		return "ok", nil
	})

	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{EngineVersion, BuildDate}, nil
	})

	d.Register(":SAVE:", func(e dispatcher.Event) (any, error) {
		Logger.Info("Received :SAVE: command, persisting session data")
		if influxManager != nil {
			influxManager.Flush()
		}
		if dbManager != nil && dbManager.ShouldSaveLocal && dbManager.SqliteFilePath != "" {
			dbInsertsPaused.Store(true)
			err := dbManager.DumpMemoryToDisk()
			dbInsertsPaused.Store(false)
			if err != nil {
				Logger.Error("Failed to dump session database", "error", err)
				return nil, err
			}
		}
		if u, ok := storageBackend.(storage.Uploadable); ok {
			if path := u.GetExportedFilePath(); path != "" {
				Logger.Info("Latest flight export", "path", path)
			}
		}
		return "ok", nil
	}, dispatcher.Logged())
}

// registerMetricHandler routes :METRIC: commands into InfluxDB. The host
// reports batch-level metrics this way; per-frame telemetry takes the richer
// :TELEMETRY: path through the worker.
func registerMetricHandler(d *dispatcher.Dispatcher) {
	d.Register(":METRIC:", func(e dispatcher.Event) (any, error) {
		if influxManager == nil {
			return nil, nil
		}
		bucket, point, err := influx.ProcessMetricData(e.Args, util.FixEscapeQuotes, util.TrimQuotes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse metric data: %w", err)
		}
		if err := influxManager.WritePoint(context.Background(), bucket, point); err != nil {
			return nil, fmt.Errorf("failed to write metric point: %w", err)
		}
		return nil, nil
	}, dispatcher.Buffered(1000))
}

// fly runs the configured batch of flights through the recording pipeline.
func fly() error {
	if err := initPipeline(); err != nil {
		return err
	}

	// pipeline self-check through the lifecycle commands
	if resp, err := eventDispatcher.Dispatch(dispatcher.Event{Command: ":INIT:", Timestamp: time.Now()}); err != nil || resp != "ok" {
		return fmt.Errorf("pipeline self-check failed: %v", err)
	}
	if v, err := eventDispatcher.Dispatch(dispatcher.Event{Command: ":VERSION:", Timestamp: time.Now()}); err == nil {
		Logger.Info("Pipeline ready", "version", v)
	}

	simCfg := config.GetSimConfig()
	if *flagCraft != "" {
		simCfg.CraftFile = *flagCraft
	}
	if *flagSite != "" {
		simCfg.LaunchSite = *flagSite
	}
	if *flagSeed != 0 {
		simCfg.Seed = *flagSeed
	}
	tag := config.GetString("defaultTag")
	if *flagTag != "" {
		tag = *flagTag
	}

	craft, err := loadCraft(parserService, simCfg.CraftFile)
	if err != nil {
		return fmt.Errorf("failed to load craft: %w", err)
	}
	site, err := sim.SiteByName(simCfg.LaunchSite)
	if err != nil {
		return fmt.Errorf("%w (known sites: %s)", err, strings.Join(sim.SiteNames(), ", "))
	}

	host := sim.NewHost(eventDispatcher, Logger, sim.Options{
		Sim:           simCfg,
		Failure:       config.GetFailureConfig(),
		EngineVersion: EngineVersion,
		Tag:           tag,
	})

	flightsFlown, err := otelProvider.Meter(appName).Int64Counter(
		"launchsim.flights.flown",
		metric.WithDescription("Flights flown this session, by outcome"))
	if err != nil {
		return fmt.Errorf("failed to create flight counter: %w", err)
	}

	baseSeed := simCfg.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}
	flights := *flagFlights
	if flights < 1 {
		flights = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for i := 0; i < flights; i++ {
		if ctx.Err() != nil {
			Logger.Info("Interrupted, stopping flight batch", "flown", i)
			break
		}

		seed := baseSeed + int64(i)
		summary, err := host.Fly(craft, site, seed)
		if err != nil {
			return fmt.Errorf("flight %d failed: %w", i+1, err)
		}
		flightsFlown.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", summary.Outcome)))
		Logger.Info("Flight recorded",
			"flight", i+1,
			"of", flights,
			"outcome", summary.Outcome,
			"duration", summary.DurationSec,
			"peakAltitude", summary.PeakAltitude,
			"explosions", summary.Explosions)

		dispatchFlightMetric(i+1, seed, summary)

		// Give the dispatcher time to drain buffered events before part IDs
		// are reused by the next flight
		time.Sleep(2 * time.Second)
	}

	if _, err := eventDispatcher.Dispatch(dispatcher.Event{Command: ":SAVE:", Timestamp: time.Now()}); err != nil {
		Logger.Warn("Failed to save session data", "error", err)
	}

	return nil
}

// dispatchFlightMetric reports a finished flight to the metric pipeline in
// the dispatcher's wire format: bucket, measurement, then tag:: and field::
// entries.
func dispatchFlightMetric(flightNum int, seed int64, s sim.Summary) {
	args := []string{
		influx.BucketEvents,
		"flight_summary",
		"tag::outcome::" + s.Outcome,
		fmt.Sprintf("field::int::flightNum::%d", flightNum),
		fmt.Sprintf("field::int::seed::%d", seed),
		fmt.Sprintf("field::float::durationSec::%f", s.DurationSec),
		fmt.Sprintf("field::float::peakAltitude::%f", s.PeakAltitude),
		fmt.Sprintf("field::int::explosions::%d", s.Explosions),
	}
	if _, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command:   ":METRIC:",
		Args:      args,
		Timestamp: time.Now(),
	}); err != nil {
		Logger.Debug("Metric dispatch skipped", "error", err)
	}
}

func shutdown() {
	Logger.Info("Shutting down")
	if monitorService != nil && monitorService.IsRunning() {
		monitorService.Stop()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if influxManager != nil {
		influxManager.Close()
	}
	Logger.Info("Session complete", "duration", time.Since(SessionStartTime))
}

func runSubcommand(args []string) {
	switch strings.ToLower(args[0]) {
	case "export":
		if len(args) < 2 {
			fmt.Println("No flight IDs provided.")
			os.Exit(1)
		}
		if err := exportFlights(args[1:]); err != nil {
			Logger.Error("Export failed", "error", err)
			os.Exit(1)
		}

	case "upload":
		if len(args) < 2 {
			fmt.Println("No export files provided.")
			os.Exit(1)
		}
		if err := uploadExports(args[1:]); err != nil {
			Logger.Error("Upload failed", "error", err)
			os.Exit(1)
		}

	case "setupdb":
		if err := setupDatabase(); err != nil {
			Logger.Error("Database setup failed", "error", err)
			os.Exit(1)
		}
		Logger.Info("Database setup complete")

	case "migratebackups":
		if err := migrateBackups(); err != nil {
			Logger.Error("Backup migration failed", "error", err)
			os.Exit(1)
		}
		Logger.Info("Finished migrating backups")

	case "sites":
		for _, name := range sim.SiteNames() {
			fmt.Println(name)
		}

	default:
		fmt.Printf("Unknown command %q. Commands: export, upload, setupdb, migratebackups, sites.\n", args[0])
		os.Exit(1)
	}
}

//////////////////////////////////////////////////////////////
// Direct (exe) functions
//////////////////////////////////////////////////////////////

func setupDatabase() error {
	dbm := database.NewManager(ZLogger)
	if err := dbm.Connect(); err != nil {
		return err
	}
	return dbm.Setup()
}

// migrateBackups pushes every local backup database produced by the Postgres
// fallback into the real server, then marks the files migrated.
func migrateBackups() error {
	backupDir := config.GetString("logsDir")
	sqlitePaths, err := database.GetBackupDBPaths(backupDir)
	if err != nil {
		return fmt.Errorf("error getting backup database paths: %v", err)
	}
	if len(sqlitePaths) == 0 {
		Logger.Info("No backup databases found", "dir", backupDir)
		return nil
	}

	postgresDB, err := database.GetPostgresDBStandalone()
	if err != nil {
		return fmt.Errorf("error getting postgres database: %v", err)
	}

	successfulMigrations := make([]string, 0)

	for _, sqlitePath := range sqlitePaths {
		sqliteDB, err := database.GetSqliteDBStandalone(sqlitePath)
		if err != nil {
			return fmt.Errorf("error getting sqlite database: %v", err)
		}

		// transaction for Postgres so we can rollback on errors
		tx := postgresDB.Begin()

		err = migrateTable(sqliteDB, tx, model.LaunchSite{}, "launch_sites")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating launch_sites: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.Flight{}, "flights")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating flights: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.PartRecord{}, "part_records")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating part_records: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.PartStateRecord{}, "part_state_records")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating part_state_records: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.TelemetryRecord{}, "telemetry_records")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating telemetry_records: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.FailureRecord{}, "failure_records")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating failure_records: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.ExplosionRecord{}, "explosion_records")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating explosion_records: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.AbortRecord{}, "abort_records")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating abort_records: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.GeneralEvent{}, "general_events")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating general_events: %v", err)
		}
		err = migrateTable(sqliteDB, tx, model.RecorderPerformance{}, "recorder_performances")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating recorder_performances: %v", err)
		}

		tx.Commit()

		// migrated cleanly, release and rename so reruns skip this file
		sqlConnection, err := sqliteDB.DB()
		if err != nil {
			Logger.Error("Error getting sqlite connection", "error", err)
			continue
		}
		if err := sqlConnection.Close(); err != nil {
			Logger.Error("Error closing sqlite connection", "error", err)
		}
		if err := os.Rename(sqlitePath, sqlitePath+".migrated"); err != nil {
			Logger.Error("Error renaming sqlite file", "error", err)
		}
		successfulMigrations = append(successfulMigrations, sqlitePath)
	}

	Logger.Info("Successfully migrated backups, it's recommended to delete these to avoid future data duplication",
		"count", len(successfulMigrations),
		"paths", successfulMigrations)
	return nil
}

// migrateTable copies one table's rows from SQLite into Postgres, skipping
// rows that already exist there.
func migrateTable[M any](sqliteDB *gorm.DB, postgresDB *gorm.DB, tableModel M, tableName string) error {
	rows := []map[string]any{}
	if err := sqliteDB.Model(&tableModel).Find(&rows).Error; err != nil {
		return err
	}
	Logger.Info("Found records", "count", len(rows), "table", tableName)
	if len(rows) == 0 {
		return nil
	}

	Logger.Info("Inserting records", "count", len(rows), "table", tableName)
	return postgresDB.Table(tableName).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rows).Error
}
