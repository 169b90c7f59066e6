// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/config"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// PartRecord groups a part with all its state samples
type PartRecord struct {
	Part   core.PartInfo
	States []core.PartState
}

// Backend stores flight data in memory and exports to JSON
type Backend struct {
	cfg    config.MemoryConfig
	flight *core.Flight
	site   *core.LaunchSite
	result *core.FlightResult

	parts map[uint16]*PartRecord // keyed by sim-assigned part ID

	telemetry     []core.TelemetryFrame
	failureEvents []core.FailureEvent
	explosions    []core.ExplosionEvent
	aborts        []core.AbortEvent
	generalEvents []core.GeneralEvent

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		parts: make(map[uint16]*PartRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartFlight begins recording a new flight
func (b *Backend) StartFlight(flight *core.Flight, site *core.LaunchSite) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.flight = flight
	b.site = site
	b.result = nil

	// Reset all collections
	b.parts = make(map[uint16]*PartRecord)
	b.telemetry = nil
	b.failureEvents = nil
	b.explosions = nil
	b.aborts = nil
	b.generalEvents = nil
	b.lastExportPath = ""

	return nil
}

// EndFlight stores the final outcome and exports the flight data
func (b *Backend) EndFlight(result *core.FlightResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.flight == nil {
		return fmt.Errorf("no flight to end")
	}
	b.result = result

	return b.exportJSON()
}

// RecordPart registers a part as it joins the craft. The part ID is
// sim-assigned by the caller, not auto-assigned here.
func (b *Backend) RecordPart(p *core.PartInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.parts[p.ID] = &PartRecord{
		Part:   *p,
		States: make([]core.PartState, 0),
	}
	return nil
}

// GetPartByID looks up a part by its sim-assigned ID
func (b *Backend) GetPartByID(id uint16) (*core.PartInfo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.parts[id]; ok {
		return &record.Part, true
	}
	return nil, false
}

// RecordPartState records a part state sample
func (b *Backend) RecordPartState(s *core.PartState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.parts[s.PartID]; ok {
		record.States = append(record.States, *s)
	}
	return nil // silently ignore if part not found
}

// RecordTelemetry records a telemetry frame
func (b *Backend) RecordTelemetry(f *core.TelemetryFrame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.telemetry = append(b.telemetry, *f)
	return nil
}

// RecordFailure records a failure event
func (b *Backend) RecordFailure(e *core.FailureEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureEvents = append(b.failureEvents, *e)
	return nil
}

// RecordExplosion records a part explosion event
func (b *Backend) RecordExplosion(e *core.ExplosionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.explosions = append(b.explosions, *e)
	return nil
}

// RecordAbort records an abort event
func (b *Backend) RecordAbort(e *core.AbortEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aborts = append(b.aborts, *e)
	return nil
}

// RecordGeneralEvent records a general event
func (b *Backend) RecordGeneralEvent(e *core.GeneralEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generalEvents = append(b.generalEvents, *e)
	return nil
}

// endFrame returns the highest capture frame seen across telemetry and part
// states (0 when nothing was recorded).
func (b *Backend) endFrame() uint {
	var maxFrame uint
	for _, f := range b.telemetry {
		if f.CaptureFrame > maxFrame {
			maxFrame = f.CaptureFrame
		}
	}
	for _, record := range b.parts {
		for _, s := range record.States {
			if s.CaptureFrame > maxFrame {
				maxFrame = s.CaptureFrame
			}
		}
	}
	return maxFrame
}

// GetExportedFilePath returns the path of the last exported file, or empty
// if nothing has been exported yet.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns upload metadata for the recorded flight.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.flight == nil {
		return core.UploadMetadata{}
	}

	meta := core.UploadMetadata{
		FlightName: b.flight.CraftName,
		Tag:        b.flight.Tag,
	}
	if b.site != nil {
		meta.SiteName = b.site.Name
	}

	// Prefer the finalized duration; derive from frames otherwise.
	if b.result != nil {
		meta.FlightDuration = b.result.DurationSec
	} else {
		meta.FlightDuration = float64(b.endFrame()) * float64(b.flight.CaptureDelay)
	}

	return meta
}
