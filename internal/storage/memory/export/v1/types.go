// Package v1 contains the v1 export format for recorded flight data.
// This format is what the flight review web frontend consumes.
package v1

// Export is the root JSON structure for v1 format
type Export struct {
	EngineVersion string         `json:"engineVersion"`
	CraftName     string         `json:"craftName"`
	SiteName      string         `json:"siteName"`
	Body          string         `json:"body"`
	Tag           string         `json:"tags"`
	Seed          int64          `json:"seed"`
	CaptureDelay  float32        `json:"captureDelay"`
	EndFrame      int            `json:"endFrame"`
	Outcome       string         `json:"outcome"`
	DurationSec   float64        `json:"durationSec"`
	Config        map[string]any `json:"config"`
	Parts         []Part         `json:"parts"`
	Telemetry     [][]any        `json:"telemetry"`
	Events        [][]any        `json:"events"`
}

// Part represents one craft part with its state history
type Part struct {
	ID            uint16  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Stage         int     `json:"stage"`
	Parent        int     `json:"parent"` // -1 for the root part
	StartFrameNum int     `json:"startFrameNum"`
	States        [][]any `json:"states"`
}
