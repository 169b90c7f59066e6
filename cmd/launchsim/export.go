package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/api"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/config"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/database"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/model"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/model/convert"
	v1 "github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/storage/memory/export/v1"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
	"gorm.io/gorm"
)

// openExportDB connects to Postgres, falling back to the configured local
// SQLite file when the server is unreachable.
func openExportDB() (*gorm.DB, error) {
	db, err := database.GetPostgresDBStandalone()
	if err == nil {
		sqlDB, derr := db.DB()
		if derr == nil && sqlDB.Ping() == nil {
			sqlDB.SetMaxOpenConns(10)
			Logger.Info("Database connection established")
			return db, nil
		}
	}

	path := config.GetStorageConfig().SQLite.Path
	Logger.Warn("Postgres unreachable, reading local SQLite file", "path", path)
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, fmt.Errorf("no reachable database: %w", statErr)
	}
	return database.GetSqliteDBStandalone(path)
}

func exportFlights(flightIDs []string) error {
	db, err := openExportDB()
	if err != nil {
		return err
	}

	for _, flightID := range flightIDs {
		idInt, err := strconv.Atoi(flightID)
		if err != nil {
			return fmt.Errorf("invalid flight ID %q: %w", flightID, err)
		}
		if err := exportFlight(db, uint(idInt)); err != nil {
			return fmt.Errorf("flight %s: %w", flightID, err)
		}
	}
	return nil
}

// exportFlight writes one recorded flight as a gzipped v1 JSON export, the
// same format the memory backend produces at the end of a flight.
func exportFlight(db *gorm.DB, flightID uint) error {
	txStart := time.Now()

	var gormFlight model.Flight
	if err := db.Model(&model.Flight{}).Where("id = ?", flightID).First(&gormFlight).Error; err != nil {
		return fmt.Errorf("error getting flight: %w", err)
	}
	var gormSite model.LaunchSite
	if err := db.Model(&model.LaunchSite{}).Where("id = ?", gormFlight.LaunchSiteID).First(&gormSite).Error; err != nil {
		return fmt.Errorf("error getting launch site: %w", err)
	}

	coreFlight := convert.FlightToCore(&gormFlight)
	coreSite := convert.LaunchSiteToCore(gormSite)
	coreResult := convert.FlightToResult(&gormFlight)

	data := &v1.FlightData{
		Flight: &coreFlight,
		Site:   &coreSite,
		Result: &coreResult,
		Parts:  map[uint16]*v1.PartRecord{},
	}

	// Bulk-fetch parts and all related data for this flight
	parts := []model.PartRecord{}
	if err := db.Model(&model.PartRecord{}).Where("flight_id = ?", flightID).Find(&parts).Error; err != nil {
		return fmt.Errorf("error getting parts: %w", err)
	}
	for _, p := range parts {
		data.Parts[p.PartID] = &v1.PartRecord{Part: convert.PartRecordToCore(p)}
	}

	allStates := []model.PartStateRecord{}
	if err := db.Model(&model.PartStateRecord{}).
		Where("flight_id = ?", flightID).
		Order("capture_frame ASC").
		Find(&allStates).Error; err != nil {
		return fmt.Errorf("error getting part states: %w", err)
	}
	for _, s := range allStates {
		record, ok := data.Parts[s.PartID]
		if !ok {
			continue
		}
		record.States = append(record.States, convert.PartStateToCore(s))
	}

	telemetry := []model.TelemetryRecord{}
	if err := db.Model(&model.TelemetryRecord{}).
		Where("flight_id = ?", flightID).
		Order("capture_frame ASC").
		Find(&telemetry).Error; err != nil {
		return fmt.Errorf("error getting telemetry: %w", err)
	}
	for _, t := range telemetry {
		data.Telemetry = append(data.Telemetry, convert.TelemetryRecordToCore(t))
	}

	failures := []model.FailureRecord{}
	if err := db.Model(&model.FailureRecord{}).
		Where("flight_id = ?", flightID).
		Order("capture_frame ASC").
		Find(&failures).Error; err != nil {
		return fmt.Errorf("error getting failure events: %w", err)
	}
	for _, f := range failures {
		data.FailureEvents = append(data.FailureEvents, convert.FailureRecordToCore(f))
	}

	explosions := []model.ExplosionRecord{}
	if err := db.Model(&model.ExplosionRecord{}).
		Where("flight_id = ?", flightID).
		Order("capture_frame ASC").
		Find(&explosions).Error; err != nil {
		return fmt.Errorf("error getting explosions: %w", err)
	}
	for _, e := range explosions {
		data.Explosions = append(data.Explosions, convert.ExplosionRecordToCore(e))
	}

	aborts := []model.AbortRecord{}
	if err := db.Model(&model.AbortRecord{}).
		Where("flight_id = ?", flightID).
		Order("capture_frame ASC").
		Find(&aborts).Error; err != nil {
		return fmt.Errorf("error getting aborts: %w", err)
	}
	for _, a := range aborts {
		data.Aborts = append(data.Aborts, convert.AbortRecordToCore(a))
	}

	generalEvents := []model.GeneralEvent{}
	if err := db.Model(&model.GeneralEvent{}).
		Where("flight_id = ?", flightID).
		Order("capture_frame ASC").
		Find(&generalEvents).Error; err != nil {
		return fmt.Errorf("error getting general events: %w", err)
	}
	for _, g := range generalEvents {
		data.GeneralEvents = append(data.GeneralEvents, convert.GeneralEventToCore(g))
	}

	Logger.Info("Got flight data", "flight", flightID, "duration", time.Since(txStart))

	exportJSON, err := json.Marshal(v1.Build(data))
	if err != nil {
		return fmt.Errorf("error marshalling flight data: %w", err)
	}

	fileName := fmt.Sprintf("%s_%s.json.gz", gormFlight.CraftName, gormFlight.StartTime.Format("20060102_150405"))
	fileName = strings.ReplaceAll(fileName, " ", "_")
	fileName = strings.ReplaceAll(fileName, ":", "_")

	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	defer func() { _ = f.Close() }()

	gzWriter := gzip.NewWriter(f)
	defer func() { _ = gzWriter.Close() }()
	if _, err := gzWriter.Write(exportJSON); err != nil {
		return fmt.Errorf("error writing to gzip: %w", err)
	}

	Logger.Info("Wrote flight export", "file", fileName)
	return nil
}

// uploadExports posts recorded flight exports to the flight review web server.
func uploadExports(paths []string) error {
	client := api.New(config.GetString("api.serverUrl"), config.GetString("api.apiKey"))
	if err := client.Healthcheck(); err != nil {
		return fmt.Errorf("server healthcheck failed: %w", err)
	}

	for _, path := range paths {
		meta, err := exportMetadata(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := client.Upload(path, meta); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		Logger.Info("Uploaded flight export", "file", path, "craft", meta.FlightName)
	}
	return nil
}

// exportMetadata reads the upload form fields back out of an export file.
func exportMetadata(path string) (core.UploadMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.UploadMetadata{}, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return core.UploadMetadata{}, fmt.Errorf("error reading gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var export v1.Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return core.UploadMetadata{}, fmt.Errorf("error decoding export: %w", err)
	}

	return core.UploadMetadata{
		SiteName:       export.SiteName,
		FlightName:     export.CraftName,
		FlightDuration: export.DurationSec,
		Tag:            export.Tag,
	}, nil
}
