package gormstorage

import (
	"testing"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/cache"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/flight"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/logging"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/storage"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend() *Backend {
	return New(Dependencies{
		DB:              nil,
		PartCache:       cache.NewPartCache(),
		SiteCache:       cache.NewSiteCache(),
		LogManager:      logging.NewSlogManager(),
		FlightContext:   flight.NewContext(),
		IsDatabaseValid: func() bool { return false },
		ShouldSaveLocal: func() bool { return false },
		DBInsertsPaused: func() bool { return false },
	})
}

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew(t *testing.T) {
	b := newTestBackend()
	require.NotNil(t, b)
}

func TestInitClose(t *testing.T) {
	b := newTestBackend()

	err := b.Init()
	require.NoError(t, err)
	require.NotNil(t, b.queues)
	require.NotNil(t, b.stopChan)

	err = b.Close()
	require.NoError(t, err)
}

func TestStartFlight_NoDB_NoError(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	f := &core.Flight{CraftName: "Kerbal X", Seed: 1337}
	site := &core.LaunchSite{Name: "KSC", Body: "Kerbin"}

	err := b.StartFlight(f, site)
	require.NoError(t, err)
	// No DB → flight not inserted, no ID assigned, but no error
	assert.Equal(t, uint(0), f.ID)
}

func TestEndFlight_NoDB_NoError(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	err := b.EndFlight(&core.FlightResult{Outcome: core.OutcomeNominal})
	require.NoError(t, err)
}

func TestRecordPart_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	part := &core.PartInfo{
		ID:       1,
		Name:     "Mk1 Command Pod",
		Category: "commandPod",
		Stage:    0,
	}

	err := b.RecordPart(part)
	require.NoError(t, err)
	assert.Equal(t, 1, b.queues.Parts.Len())
}

func TestRecordPartState_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	state := &core.PartState{
		PartID:       42,
		CaptureFrame: 100,
		Temperature:  310.5,
		ThrustPct:    1.0,
		Attached:     true,
	}

	err := b.RecordPartState(state)
	require.NoError(t, err)
	assert.Equal(t, 1, b.queues.PartStates.Len())
}

func TestRecordPartState_SkipsWhenSQLite(t *testing.T) {
	b := New(Dependencies{
		DB:              nil,
		PartCache:       cache.NewPartCache(),
		SiteCache:       cache.NewSiteCache(),
		LogManager:      logging.NewSlogManager(),
		FlightContext:   flight.NewContext(),
		IsDatabaseValid: func() bool { return false },
		ShouldSaveLocal: func() bool { return true }, // SQLite mode
		DBInsertsPaused: func() bool { return false },
	})
	b.Init()
	defer b.Close()

	state := &core.PartState{
		PartID:       42,
		CaptureFrame: 100,
	}

	err := b.RecordPartState(state)
	require.NoError(t, err)
	assert.Equal(t, 0, b.queues.PartStates.Len(), "should not queue when SQLite")
}

func TestRecordTelemetry_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	frame := &core.TelemetryFrame{
		CaptureFrame: 250,
		MET:          5.0,
		Altitude:     842.0,
		Velocity:     104.2,
		Position:     core.Position3D{X: 100, Y: 200, Z: 842},
	}

	err := b.RecordTelemetry(frame)
	require.NoError(t, err)
	assert.Equal(t, 1, b.queues.Telemetry.Len())
}

func TestRecordFailure_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	event := &core.FailureEvent{
		CaptureFrame: 620,
		PartID:       7,
		PartName:     "LV-T45 Swivel Liquid Fuel Engine",
		FailureType:  "engine",
		Phase:        "Warning",
		Message:      "Underthrust warning",
	}

	err := b.RecordFailure(event)
	require.NoError(t, err)
	assert.Equal(t, 1, b.queues.FailureEvents.Len())

	items := b.queues.FailureEvents.GetAndEmpty()
	require.Len(t, items, 1)
	assert.Equal(t, uint16(7), items[0].PartID)
	assert.Equal(t, "engine", items[0].FailureType)
	assert.Equal(t, uint(620), items[0].CaptureFrame)
}

func TestRecordExplosion_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	event := &core.ExplosionEvent{
		CaptureFrame: 700,
		PartID:       7,
		PartName:     "LV-T45 Swivel Liquid Fuel Engine",
		Cause:        core.CauseOverheat,
		Altitude:     1975.0,
	}

	err := b.RecordExplosion(event)
	require.NoError(t, err)
	assert.Equal(t, 1, b.queues.Explosions.Len())
}

func TestRecordAbort_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	event := &core.AbortEvent{
		CaptureFrame: 705,
		Automatic:    true,
		Reason:       "part destruction imminent",
	}

	err := b.RecordAbort(event)
	require.NoError(t, err)
	assert.Equal(t, 1, b.queues.Aborts.Len())
}

func TestRecordGeneralEvent_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	event := &core.GeneralEvent{
		Name:    "staging",
		Message: "Stage 1 separation",
	}

	err := b.RecordGeneralEvent(event)
	require.NoError(t, err)
	assert.Equal(t, 1, b.queues.GeneralEvents.Len())
}

func TestGetPartByID(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	_, found := b.GetPartByID(42)
	assert.False(t, found, "should not find part not in cache")

	// Add to part cache (cache stores core types)
	b.deps.PartCache.Add(core.PartInfo{ID: 42, Name: "FL-T400 Fuel Tank"})
	part, found := b.GetPartByID(42)
	assert.True(t, found)
	assert.Equal(t, uint16(42), part.ID)
	assert.Equal(t, "FL-T400 Fuel Tank", part.Name)
}

func TestGetSiteID(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	_, found := b.GetSiteID("KSC")
	assert.False(t, found, "should not find site not in cache")

	b.deps.SiteCache.Set("KSC", 3)
	id, found := b.GetSiteID("KSC")
	assert.True(t, found)
	assert.Equal(t, uint(3), id)
}

func TestSetFlightID(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	b.SetFlightID(17)
	assert.Equal(t, uint64(17), b.flightID.Load())
}

func TestGetLastDBWriteDuration(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	assert.Equal(t, time.Duration(0), b.GetLastDBWriteDuration())

	b.lastDBWriteDuration = 100 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, b.GetLastDBWriteDuration())
}

func TestWriteQueueLengths(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	b.RecordTelemetry(&core.TelemetryFrame{CaptureFrame: 1})
	b.RecordTelemetry(&core.TelemetryFrame{CaptureFrame: 2})
	b.RecordFailure(&core.FailureEvent{CaptureFrame: 3})

	lengths := b.WriteQueueLengths()
	assert.Equal(t, uint16(2), lengths.Telemetry)
	assert.Equal(t, uint16(1), lengths.FailureEvents)
	assert.Equal(t, uint16(0), lengths.Parts)
}
