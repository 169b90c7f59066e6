package worker

import (
	"fmt"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/dispatcher"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/model/convert"
)

// RegisterHandlers registers all flight command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Flight lifecycle - sync (every other command references the active flight)
	d.Register(":FLIGHT:NEW:", m.handleFlightNew, dispatcher.Logged())
	d.Register(":FLIGHT:END:", m.handleFlightEnd, dispatcher.Logged())

	// Part registration - sync (need to cache before states arrive)
	d.Register(":PART:NEW:", m.handleNewPart, dispatcher.Logged())

	// High-volume streams - buffered
	d.Register(":PART:STATE:", m.handlePartState, dispatcher.Buffered(10000), dispatcher.Logged())
	d.Register(":TELEMETRY:", m.handleTelemetry, dispatcher.Buffered(10000), dispatcher.Logged())

	// Failure lifecycle - buffered
	d.Register(":FAILURE:WARNING:", m.handleFailureEvent, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(":FAILURE:DESTROYED:", m.handleFailureEvent, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(":PART:EXPLODED:", m.handleExplosion, dispatcher.Buffered(2000), dispatcher.Logged())
	d.Register(":ABORT:", m.handleAbort, dispatcher.Buffered(500), dispatcher.Logged())

	// General events - buffered
	d.Register(":EVENT:", m.handleGeneralEvent, dispatcher.Buffered(1000), dispatcher.Logged())
}

func (m *Manager) handleFlightNew(e dispatcher.Event) (any, error) {
	coreFlight, coreSite, err := m.deps.ParserService.ParseFlight(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log new flight: %w", err)
	}

	// A new flight invalidates everything tracked for the previous one
	m.resetFlightState()

	if err := m.backend.StartFlight(&coreFlight, &coreSite); err != nil {
		return nil, fmt.Errorf("failed to start flight: %w", err)
	}

	// StartFlight assigned the DB IDs back onto the core types
	if m.deps.SiteCache != nil {
		m.deps.SiteCache.Set(coreSite.Name, coreSite.ID)
	}
	if m.deps.FlightContext != nil {
		gormFlight := convert.CoreToFlight(coreFlight)
		gormFlight.ID = coreFlight.ID
		gormSite := convert.CoreToLaunchSite(coreSite)
		gormSite.ID = coreSite.ID
		m.deps.FlightContext.SetFlight(&gormFlight, &gormSite)
	}

	return nil, nil
}

func (m *Manager) handleFlightEnd(e dispatcher.Event) (any, error) {
	result, err := m.deps.ParserService.ParseFlightResult(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log flight result: %w", err)
	}

	if err := m.backend.EndFlight(&result); err != nil {
		return nil, fmt.Errorf("failed to end flight: %w", err)
	}

	return nil, nil
}

func (m *Manager) handleNewPart(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParsePart(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log new part: %w", err)
	}

	// Always cache for state handler lookups
	m.deps.PartCache.Add(obj)

	m.backend.RecordPart(&obj)

	return nil, nil
}

func (m *Manager) handlePartState(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParsePartState(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log part state: %w", err)
	}

	// Validate part exists in cache
	if _, ok := m.deps.PartCache.Get(obj.PartID); !ok {
		return nil, ErrTooEarlyForStateAssociation
	}

	m.trackState(obj)

	m.backend.RecordPartState(&obj)

	return nil, nil
}

func (m *Manager) handleTelemetry(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseTelemetry(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log telemetry: %w", err)
	}

	m.noteFrame(obj.CaptureFrame)

	m.backend.RecordTelemetry(&obj)
	m.teeTelemetry(obj)

	return nil, nil
}

func (m *Manager) handleFailureEvent(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseFailureEvent(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log failure event: %w", err)
	}

	m.backend.RecordFailure(&obj)

	return nil, nil
}

func (m *Manager) handleExplosion(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseExplosionEvent(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log explosion: %w", err)
	}

	if _, ok := m.deps.PartCache.Get(obj.PartID); ok {
		m.enrichLastState(&obj)
	} else {
		m.deps.LogManager.Logger().Warn("Exploded part not found in cache", "partID", obj.PartID)
	}

	m.backend.RecordExplosion(&obj)
	m.teeEvent("explosion", obj.CaptureFrame, map[string]any{
		"partId":   int(obj.PartID),
		"partName": obj.PartName,
		"cause":    obj.Cause,
		"altitude": obj.Altitude,
	})

	return nil, nil
}

func (m *Manager) handleAbort(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseAbortEvent(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log abort: %w", err)
	}

	m.backend.RecordAbort(&obj)
	m.teeEvent("abort", obj.CaptureFrame, map[string]any{
		"automatic": obj.Automatic,
		"reason":    obj.Reason,
	})

	return nil, nil
}

func (m *Manager) handleGeneralEvent(e dispatcher.Event) (any, error) {
	obj, err := m.deps.ParserService.ParseGeneralEvent(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to log general event: %w", err)
	}

	m.backend.RecordGeneralEvent(&obj)
	m.teeEvent(obj.Name, obj.CaptureFrame, map[string]any{"message": obj.Message})

	return nil, nil
}
