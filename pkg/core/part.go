// pkg/core/part.go
package core

import "time"

// PartInfo describes one part of the craft as it joined the flight.
// ID is the part's identifier within the craft, stable for the whole flight.
type PartInfo struct {
	ID            uint16 // part identifier within the craft
	JoinTime      time.Time
	JoinFrame     uint
	Name          string
	Category      string
	Stage         int
	ParentID      *uint16 // nil for the root part
	MaxTemp       float64
	MaxThrust     float64
	BreakingForce float64
	ExplosiveFuel bool
}

// PartState represents a part's condition at a point in time.
// PartID references PartInfo.ID.
type PartState struct {
	PartID       uint16
	Time         time.Time
	CaptureFrame uint
	Temperature  float64
	ThrustPct    float64
	Attached     bool
	Doomed       bool
}
