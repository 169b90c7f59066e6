// Package gormstorage implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine. It serves both
// PostgreSQL and in-memory SQLite connections; the SQLite backend wraps it.
package gormstorage

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/cache"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/flight"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/geo"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/logging"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/model"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/model/convert"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/queue"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	PartCache     *cache.PartCache
	SiteCache     *cache.SiteCache
	LogManager    *logging.SlogManager
	FlightContext *flight.Context

	// IsDatabaseValid reports whether the connection passed its last health
	// check. Nil means always valid.
	IsDatabaseValid func() bool
	// ShouldSaveLocal reports whether writes go to local SQLite rather than
	// Postgres. Nil means false.
	ShouldSaveLocal func() bool
	// DBInsertsPaused suspends queue draining while true. Nil means never.
	DBInsertsPaused func() bool
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Parts         *queue.Queue[model.PartRecord]
	PartStates    *queue.Queue[model.PartStateRecord]
	Telemetry     *queue.Queue[model.TelemetryRecord]
	FailureEvents *queue.Queue[model.FailureRecord]
	Explosions    *queue.Queue[model.ExplosionRecord]
	Aborts        *queue.Queue[model.AbortRecord]
	GeneralEvents *queue.Queue[model.GeneralEvent]
}

func newQueues() *queues {
	return &queues{
		Parts:         queue.New[model.PartRecord](),
		PartStates:    queue.New[model.PartStateRecord](),
		Telemetry:     queue.New[model.TelemetryRecord](),
		FailureEvents: queue.New[model.FailureRecord](),
		Explosions:    queue.New[model.ExplosionRecord](),
		Aborts:        queue.New[model.AbortRecord](),
		GeneralEvents: queue.New[model.GeneralEvent](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	flightID atomic.Uint64
	stopChan chan struct{}
	dbReady  bool

	lastDBWriteDuration time.Duration
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB
// writer goroutine. Without an injected DB the backend runs queue-only;
// callers that want persistence supply a connection via Dependencies.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB != nil {
		if err := b.setupDB(); err != nil {
			return fmt.Errorf("failed to setup DB: %w", err)
		}
		b.dbReady = true
	}

	b.startDBWriters()
	return nil
}

// setupDB migrates tables and seeds the stock launch site if none exist.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.LogManager

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE Extension IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS Extension: %w", err)
		}
		log.WriteLog("setupDB", "PostGIS Extension created", "INFO")
	}

	log.WriteLog("setupDB", "Migrating schema", "INFO")
	models := model.DatabaseModels
	if db.Name() == "sqlite" {
		models = model.DatabaseModelsSQLite
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Seed the stock launch site so a fresh database has a usable catalog entry
	var siteCount int64
	if err := db.Model(&model.LaunchSite{}).Count(&siteCount).Error; err != nil {
		return fmt.Errorf("failed to count launch sites: %w", err)
	}
	if siteCount == 0 {
		location, _ := geo.Coords3857From4326(-74.5577, -0.0972)
		err := db.Create(&model.LaunchSite{
			Name:            "KSC",
			Body:            "Kerbin",
			Elevation:       68.41,
			AtmosphereDepth: 70000,
			Location:        location,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to seed launch site: %w", err)
		}
		log.WriteLog("setupDB", "Seeded stock launch site", "INFO")
	}

	log.WriteLog("setupDB", "Database setup complete", "INFO")
	return nil
}

// Close stops the DB writer goroutine.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
	}
	return nil
}

func (b *Backend) shouldSaveLocal() bool {
	return b.deps.ShouldSaveLocal != nil && b.deps.ShouldSaveLocal()
}

func (b *Backend) insertsPaused() bool {
	return b.deps.DBInsertsPaused != nil && b.deps.DBInsertsPaused()
}

// StartFlight performs launch-site get-or-insert and flight create in the DB,
// then publishes the active flight through the flight context.
func (b *Backend) StartFlight(coreFlight *core.Flight, coreSite *core.LaunchSite) error {
	if b.deps.DB == nil {
		return nil
	}

	db := b.deps.DB
	log := b.deps.LogManager

	gormFlight := convert.CoreToFlight(*coreFlight)
	gormSite := convert.CoreToLaunchSite(*coreSite)

	created, err := gormSite.GetOrInsert(db)
	if err != nil {
		log.WriteLog("StartFlight", fmt.Sprintf("Failed to get or insert launch site: %v", err), "ERROR")
		return fmt.Errorf("failed to get or insert launch site %s: %w", coreSite.Name, err)
	}
	if created {
		log.WriteLog("StartFlight", fmt.Sprintf("Registered new launch site %s", gormSite.Name), "INFO")
	}
	if b.deps.SiteCache != nil {
		b.deps.SiteCache.Set(gormSite.Name, gormSite.ID)
	}

	// Flight create
	gormFlight.LaunchSite = gormSite
	if err := db.Create(&gormFlight).Error; err != nil {
		return fmt.Errorf("failed to insert new flight: %w", err)
	}

	// Assign DB-generated IDs back to core types
	coreFlight.ID = gormFlight.ID
	coreSite.ID = gormSite.ID

	// Store flight ID for the DB writer goroutine
	b.flightID.Store(uint64(gormFlight.ID))

	if b.deps.FlightContext != nil {
		b.deps.FlightContext.SetFlight(&gormFlight, &gormSite)
	}

	return nil
}

// SetFlightID sets the current flight ID for the DB writer (used by CLI tools).
func (b *Backend) SetFlightID(id uint) {
	b.flightID.Store(uint64(id))
}

// EndFlight stamps the final outcome and ground track onto the flight row.
// The writer goroutine keeps draining queues until Close.
func (b *Backend) EndFlight(result *core.FlightResult) error {
	if b.deps.DB == nil {
		return nil
	}

	flightID := uint(b.flightID.Load())
	if flightID == 0 {
		return fmt.Errorf("no active flight to end")
	}

	var gormFlight model.Flight
	if err := b.deps.DB.First(&gormFlight, flightID).Error; err != nil {
		return fmt.Errorf("failed to load flight %d: %w", flightID, err)
	}
	convert.ResultToFlight(*result, &gormFlight)
	if err := b.deps.DB.Save(&gormFlight).Error; err != nil {
		return fmt.Errorf("failed to finalize flight %d: %w", flightID, err)
	}
	return nil
}

// RecordPart converts a part to GORM and pushes to the write queue.
func (b *Backend) RecordPart(p *core.PartInfo) error {
	gormObj := convert.CoreToPartRecord(*p)
	b.queues.Parts.Push(gormObj)
	return nil
}

// RecordPartState converts and queues a part state sample. Skipped in local
// SQLite mode — per-frame part states dominate row volume and would bloat
// the in-memory database.
func (b *Backend) RecordPartState(s *core.PartState) error {
	if b.shouldSaveLocal() {
		return nil
	}
	gormObj := convert.CoreToPartState(*s)
	b.queues.PartStates.Push(gormObj)
	return nil
}

// RecordTelemetry converts and queues a telemetry frame.
func (b *Backend) RecordTelemetry(f *core.TelemetryFrame) error {
	gormObj := convert.CoreToTelemetryRecord(*f)
	b.queues.Telemetry.Push(gormObj)
	return nil
}

// RecordFailure converts and queues a failure event.
func (b *Backend) RecordFailure(e *core.FailureEvent) error {
	gormObj := convert.CoreToFailureRecord(*e)
	b.queues.FailureEvents.Push(gormObj)
	return nil
}

// RecordExplosion converts and queues a part explosion event.
func (b *Backend) RecordExplosion(e *core.ExplosionEvent) error {
	gormObj := convert.CoreToExplosionRecord(*e)
	b.queues.Explosions.Push(gormObj)
	return nil
}

// RecordAbort converts and queues an abort event.
func (b *Backend) RecordAbort(e *core.AbortEvent) error {
	gormObj := convert.CoreToAbortRecord(*e)
	b.queues.Aborts.Push(gormObj)
	return nil
}

// RecordGeneralEvent converts and queues a general event.
func (b *Backend) RecordGeneralEvent(e *core.GeneralEvent) error {
	gormObj := convert.CoreToGeneralEvent(*e)
	b.queues.GeneralEvents.Push(gormObj)
	return nil
}

// GetPartByID looks up a part in the cache by its sim-assigned ID.
func (b *Backend) GetPartByID(id uint16) (core.PartInfo, bool) {
	return b.deps.PartCache.Get(id)
}

// GetSiteID looks up a launch site's DB ID by name.
func (b *Backend) GetSiteID(name string) (uint, bool) {
	return b.deps.SiteCache.Get(name)
}

// GetLastDBWriteDuration returns the wall time of the last queue drain cycle.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return b.lastDBWriteDuration
}

// WriteQueueLengths reports the current depth of each write queue, for the
// status monitor.
func (b *Backend) WriteQueueLengths() model.WriteQueueLengths {
	return model.WriteQueueLengths{
		Parts:         uint16(b.queues.Parts.Len()),
		PartStates:    uint16(b.queues.PartStates.Len()),
		Telemetry:     uint16(b.queues.Telemetry.Len()),
		FailureEvents: uint16(b.queues.FailureEvents.Len()),
		Explosions:    uint16(b.queues.Explosions.Len()),
		Aborts:        uint16(b.queues.Aborts.Len()),
		GeneralEvents: uint16(b.queues.GeneralEvents.Len()),
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T), onSuccess func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
	if onSuccess != nil {
		onSuccess(items)
	}
}

// startDBWriters starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriters() {
	log := b.deps.LogManager.WriteLog

	go func() {
		for {
			select {
			case <-b.stopChan:
				return
			default:
			}

			if !b.dbReady || b.insertsPaused() {
				time.Sleep(1 * time.Second)
				continue
			}

			// Read flightID once per write cycle
			flightID := uint(b.flightID.Load())

			// stampFlightID helpers
			stampParts := func(items []model.PartRecord) {
				for i := range items {
					items[i].FlightID = flightID
				}
			}
			stampPartStates := func(items []model.PartStateRecord) {
				for i := range items {
					items[i].FlightID = flightID
				}
			}
			stampTelemetry := func(items []model.TelemetryRecord) {
				for i := range items {
					items[i].FlightID = flightID
				}
			}
			stampFailureEvents := func(items []model.FailureRecord) {
				for i := range items {
					items[i].FlightID = flightID
				}
			}
			stampExplosions := func(items []model.ExplosionRecord) {
				for i := range items {
					items[i].FlightID = flightID
				}
			}
			stampAborts := func(items []model.AbortRecord) {
				for i := range items {
					items[i].FlightID = flightID
				}
			}
			stampGeneralEvents := func(items []model.GeneralEvent) {
				for i := range items {
					items[i].FlightID = flightID
				}
			}

			start := time.Now()

			// Craft structure (part cache already populated by the worker at parse time)
			writeQueue(b.deps.DB, b.queues.Parts, "parts", log, stampParts, nil)

			// State and telemetry samples
			writeQueue(b.deps.DB, b.queues.PartStates, "part states", log, stampPartStates, nil)
			writeQueue(b.deps.DB, b.queues.Telemetry, "telemetry frames", log, stampTelemetry, nil)

			// Events
			writeQueue(b.deps.DB, b.queues.FailureEvents, "failure events", log, stampFailureEvents, nil)
			writeQueue(b.deps.DB, b.queues.Explosions, "explosion events", log, stampExplosions, nil)
			writeQueue(b.deps.DB, b.queues.Aborts, "abort events", log, stampAborts, nil)
			writeQueue(b.deps.DB, b.queues.GeneralEvents, "general events", log, stampGeneralEvents, nil)

			b.lastDBWriteDuration = time.Since(start)

			time.Sleep(2 * time.Second)
		}
	}()
}
