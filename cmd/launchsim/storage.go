package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/config"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/database"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/monitor"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/storage"
	gormstorage "github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/storage/gorm"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/storage/memory"
	sqlitestorage "github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/storage/sqlite"
	wsstorage "github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/storage/websocket"
)

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		dbManager = database.NewManager(ZLogger)
		if err := dbManager.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := dbManager.Setup(); err != nil {
			return nil, fmt.Errorf("failed to set up database: %w", err)
		}
		Logger.Info("Postgres storage backend initialized", "localFallback", dbManager.ShouldSaveLocal)
		return gormstorage.New(gormstorage.Dependencies{
			DB:              dbManager.DB,
			PartCache:       partCache,
			SiteCache:       siteCache,
			LogManager:      SlogManager,
			FlightContext:   flightContext,
			IsDatabaseValid: func() bool { return dbManager.IsValid },
			ShouldSaveLocal: func() bool { return dbManager.ShouldSaveLocal },
			DBInsertsPaused: dbInsertsPaused.Load,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.Path,
		}, partCache, siteCache, SlogManager, flightContext)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "websocket":
		// accept http(s) review-server URLs as well as ws(s) ones
		wsURL := httpToWS(storageCfg.Websocket.URL)
		Logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: storageCfg.Websocket.Secret,
		}), nil

	default:
		Logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}

// startMonitor runs the status monitor against the live database connection.
// On a real Postgres server it also promotes the high-volume tables to
// TimescaleDB hypertables.
func startMonitor() {
	monitorService = monitor.NewService(monitor.Dependencies{
		DB:              dbManager.DB,
		LogManager:      SlogManager,
		FlightContext:   flightContext,
		WorkerManager:   workerManager,
		StatusDir:       config.GetString("logsDir"),
		IsDatabaseValid: func() bool { return dbManager.IsValid },
	})

	if !dbManager.ShouldSaveLocal {
		if err := monitorService.ValidateHypertables(map[string][]string{
			"part_state_records": {"flight_id", "part_id"},
			"telemetry_records":  {"flight_id"},
		}); err != nil {
			Logger.Warn("TimescaleDB hypertables unavailable", "error", err)
		}
	}

	if !monitorService.IsRunning() {
		Logger.Debug("Status monitor not running, starting it")
		if err := monitorService.Start(); err != nil {
			Logger.Warn("Failed to start status monitor", "error", err)
		}
	}
}

// startDumpLoop periodically pauses queue draining and dumps the in-memory
// fallback database to disk, so losing the Postgres connection cannot lose
// a whole session.
func startDumpLoop(interval time.Duration) {
	functionName := "startDumpLoop"

	if !dbManager.ShouldSaveLocal {
		return
	}
	if interval <= 0 {
		interval = 3 * time.Minute
	}
	dbManager.SqliteFilePath = filepath.Join(config.GetString("logsDir"),
		fmt.Sprintf("%s_%s.db", appName, SessionStartTime.Format("20060102_150405")))

	go func() {
		Logger.Debug("Starting DB dump goroutine", "interval", interval)
		for {
			time.Sleep(interval)

			// pause insert execution
			dbInsertsPaused.Store(true)

			SlogManager.WriteLog(functionName, "Dumping in-memory SQLite DB to disk", "DEBUG")
			if err := dbManager.DumpMemoryToDisk(); err != nil {
				SlogManager.WriteLog(functionName, fmt.Sprintf(`Error dumping memory db to disk: %v`, err), "ERROR")
			}

			// resume insert execution
			dbInsertsPaused.Store(false)
		}
	}()
}
