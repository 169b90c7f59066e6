// pkg/core/flight.go
package core

import "time"

// LaunchSite represents the site a flight departs from.
type LaunchSite struct {
	ID              uint
	Name            string
	Body            string
	Latitude        float64
	Longitude       float64
	Elevation       float64
	AtmosphereDepth float64
	Location        Position3D
}

// Flight represents one recorded ascent.
type Flight struct {
	ID             uint
	CraftName      string
	Tag            string
	StartTime      time.Time
	LaunchSiteID   uint
	CaptureDelay   float32
	Seed           int64
	EngineVersion  string
	ConfigSnapshot map[string]any // failure options in effect at launch
	Outcome        string
	DurationSec    float64
	EndFrame       uint
}

// FlightResult carries the final outcome of a flight to the storage layer.
type FlightResult struct {
	Outcome     string
	DurationSec float64
	EndFrame    uint
	GroundTrack []Position3D // site-local positions, launch to end
}

// Flight outcome values.
const (
	OutcomeNominal = "nominal"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
)

// UploadMetadata carries the form fields sent alongside a flight upload.
type UploadMetadata struct {
	SiteName       string
	FlightName     string
	FlightDuration float64
	Tag            string
}
