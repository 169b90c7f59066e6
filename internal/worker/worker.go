package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/cache"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/flight"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/influx"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/logging"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/model"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/parser"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/queue"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/storage"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// ErrTooEarlyForStateAssociation is returned when state data arrives before the part is registered
var ErrTooEarlyForStateAssociation = fmt.Errorf("too early for state association")

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	PartCache     *cache.PartCache
	SiteCache     *cache.SiteCache
	FlightContext *flight.Context
	LogManager    *logging.SlogManager
	ParserService parser.Service

	// Influx mirrors telemetry and flight events into InfluxDB when set.
	Influx *influx.Manager
}

// Manager routes parsed flight commands into the storage backend. It also
// keeps each part's raw state rows for the current flight so explosion
// records can be enriched with the part's state around the event frame.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	mu         sync.RWMutex
	partStates map[uint16]*queue.PartStatesMap
	maxFrame   uint
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	return &Manager{
		deps:       deps,
		backend:    backend,
		partStates: make(map[uint16]*queue.PartStatesMap),
	}
}

// resetFlightState drops everything tracked for the previous flight.
func (m *Manager) resetFlightState() {
	m.deps.PartCache.Reset()

	m.mu.Lock()
	m.partStates = make(map[uint16]*queue.PartStatesMap)
	m.maxFrame = 0
	m.mu.Unlock()
}

// trackState keeps the part's raw state row for explosion enrichment.
// Row layout matches the exported state rows:
// [frameNum, temperature, thrustPct, attached, doomed].
func (m *Manager) trackState(s core.PartState) {
	row := []any{
		s.CaptureFrame,
		s.Temperature,
		s.ThrustPct,
		boolToInt(s.Attached),
		boolToInt(s.Doomed),
	}

	m.mu.Lock()
	states, ok := m.partStates[s.PartID]
	if !ok {
		states = queue.NewPartStatesMap()
		m.partStates[s.PartID] = states
	}
	if s.CaptureFrame > m.maxFrame {
		m.maxFrame = s.CaptureFrame
	}
	m.mu.Unlock()

	states.Set(s.CaptureFrame, row)
}

// noteFrame advances the highest capture frame seen so far.
func (m *Manager) noteFrame(frame uint) {
	m.mu.Lock()
	if frame > m.maxFrame {
		m.maxFrame = frame
	}
	m.mu.Unlock()
}

// enrichLastState attaches the part's state row at or after the explosion
// frame. State rows stream in behind the events, so the row at the exact
// frame may not exist yet; the first one after it is the part's terminal
// state. A part that never reported a state keeps a nil LastState.
func (m *Manager) enrichLastState(e *core.ExplosionEvent) {
	m.mu.RLock()
	states, ok := m.partStates[e.PartID]
	maxFrame := m.maxFrame
	m.mu.RUnlock()
	if !ok {
		return
	}

	state, err := states.GetStateAtFrame(e.CaptureFrame, maxFrame)
	if err != nil {
		state = states.GetLastState()
	}
	if state != nil {
		e.LastState = state
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// activeFlightID returns the DB ID of the flight in progress, or 0 when no
// flight has started yet.
func (m *Manager) activeFlightID() uint {
	if m.deps.FlightContext == nil {
		return 0
	}
	return m.deps.FlightContext.GetFlight().ID
}

// teeTelemetry mirrors a telemetry frame into InfluxDB. Metric delivery is
// best effort and never fails the handler.
func (m *Manager) teeTelemetry(f core.TelemetryFrame) {
	if m.deps.Influx == nil {
		return
	}
	if err := m.deps.Influx.WriteTelemetryPoint(context.Background(), m.activeFlightID(), f); err != nil {
		m.deps.LogManager.Logger().Warn("Failed to write telemetry point", "error", err)
	}
}

// teeEvent mirrors a flight event into InfluxDB. Best effort.
func (m *Manager) teeEvent(name string, captureFrame uint, fields map[string]any) {
	if m.deps.Influx == nil {
		return
	}
	if err := m.deps.Influx.WriteFlightEvent(context.Background(), m.activeFlightID(), name, captureFrame, fields); err != nil {
		m.deps.LogManager.Logger().Warn("Failed to write flight event point", "error", err)
	}
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}

// WriteQueueLengthsProvider is an optional interface that backends can
// implement to expose their write queue depths for monitoring.
type WriteQueueLengthsProvider interface {
	WriteQueueLengths() model.WriteQueueLengths
}

// WriteQueueLengths reports the backend's write queue depths.
// Returns the zero value if the backend doesn't track queues.
func (m *Manager) WriteQueueLengths() model.WriteQueueLengths {
	if p, ok := m.backend.(WriteQueueLengthsProvider); ok {
		return p.WriteQueueLengths()
	}
	return model.WriteQueueLengths{}
}
