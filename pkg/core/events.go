// pkg/core/events.go
package core

import "time"

// Position3D is a site-local position in meters; Z is altitude above sea level.
type Position3D struct {
	X float64
	Y float64
	Z float64
}

// TelemetryFrame is one snapshot of the ascent state at a capture frame.
type TelemetryFrame struct {
	Time         time.Time
	CaptureFrame uint
	MET          float64 // mission elapsed time, seconds
	Altitude     float64
	Velocity     float64
	Throttle     float64
	Mass         float64
	Stage        int
	Position     Position3D
}

// FailureEvent marks a lifecycle event of an equipment failure:
// warning issued, degradation started, part destroyed.
type FailureEvent struct {
	Time         time.Time
	CaptureFrame uint
	PartID       uint16
	PartName     string
	FailureType  string
	Phase        string
	Message      string
}

// ExplosionEvent records the destruction of a part. LastState holds the
// part's last recorded state row at or after the explosion frame, if any.
type ExplosionEvent struct {
	Time         time.Time
	CaptureFrame uint
	PartID       uint16
	PartName     string
	Cause        string
	Altitude     float64
	LastState    []any
}

// Explosion causes.
const (
	CauseOverheat   = "overheat"
	CauseStructural = "structural"
	CauseCascade    = "cascade"
)

// AbortEvent records an abort action, manual or automatic.
type AbortEvent struct {
	Time         time.Time
	CaptureFrame uint
	Automatic    bool
	Reason       string
}

// GeneralEvent is a free-text flight log entry.
type GeneralEvent struct {
	Time         time.Time
	CaptureFrame uint
	Name         string
	Message      string
	ExtraData    map[string]any
}
