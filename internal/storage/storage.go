// internal/storage/storage.go
package storage

import "github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Flight management (StartFlight assigns the DB ID to the passed flight)
	StartFlight(flight *core.Flight, site *core.LaunchSite) error
	EndFlight(result *core.FlightResult) error

	// Craft structure
	RecordPart(p *core.PartInfo) error
	RecordPartState(s *core.PartState) error

	// Ascent recording
	RecordTelemetry(f *core.TelemetryFrame) error

	// Failure and event recording
	RecordFailure(e *core.FailureEvent) error
	RecordExplosion(e *core.ExplosionEvent) error
	RecordAbort(e *core.AbortEvent) error
	RecordGeneralEvent(e *core.GeneralEvent) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the flight review web frontend.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
