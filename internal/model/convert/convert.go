package convert

import (
	"encoding/json"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/model"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// pointToPosition3D converts a PostGIS geom.Point to a core.Position3D
func pointToPosition3D(p geom.Point) core.Position3D {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Position3D{}
	}
	return core.Position3D{X: coord.XY.X, Y: coord.XY.Y, Z: coord.Z}
}

// lineStringToTrack converts a geom.LineString ground track back to positions.
// Z is zero for every point; the stored track is a surface projection.
func lineStringToTrack(ls geom.LineString) []core.Position3D {
	seq := ls.Coordinates()
	if seq.Length() == 0 {
		return nil
	}
	track := make([]core.Position3D, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		pt := seq.GetXY(i)
		track[i] = core.Position3D{X: pt.X, Y: pt.Y}
	}
	return track
}

// LaunchSiteToCore converts a GORM model.LaunchSite to a core.LaunchSite.
func LaunchSiteToCore(s model.LaunchSite) core.LaunchSite {
	return core.LaunchSite{
		ID:              s.ID,
		Name:            s.Name,
		Body:            s.Body,
		Latitude:        float64(s.Latitude),
		Longitude:       float64(s.Longitude),
		Elevation:       float64(s.Elevation),
		AtmosphereDepth: s.AtmosphereDepth,
		Location:        pointToPosition3D(s.Location),
	}
}

// FlightToCore converts a GORM model.Flight to a core.Flight.
func FlightToCore(f *model.Flight) core.Flight {
	var config map[string]any
	if len(f.Config) > 0 {
		_ = json.Unmarshal(f.Config, &config)
	}

	return core.Flight{
		ID:             f.ID,
		CraftName:      f.CraftName,
		Tag:            f.Tag,
		StartTime:      f.StartTime,
		LaunchSiteID:   f.LaunchSiteID,
		CaptureDelay:   f.CaptureDelay,
		Seed:           f.Seed,
		EngineVersion:  f.EngineVersion,
		ConfigSnapshot: config,
		Outcome:        f.Outcome,
		DurationSec:    f.DurationSec,
		EndFrame:       f.EndFrame,
	}
}

// FlightToResult extracts the final outcome of a GORM model.Flight.
func FlightToResult(f *model.Flight) core.FlightResult {
	return core.FlightResult{
		Outcome:     f.Outcome,
		DurationSec: f.DurationSec,
		EndFrame:    f.EndFrame,
		GroundTrack: lineStringToTrack(f.GroundTrack),
	}
}

// PartRecordToCore converts a GORM model.PartRecord to a core.PartInfo.
// GORM PartRecord.PartID maps to core PartInfo.ID.
func PartRecordToCore(p model.PartRecord) core.PartInfo {
	var parentID *uint16
	if p.ParentPartID.Valid {
		id := uint16(p.ParentPartID.Int32)
		parentID = &id
	}

	return core.PartInfo{
		ID:            p.PartID, // Core ID = GORM PartID
		JoinTime:      p.JoinTime,
		JoinFrame:     p.JoinFrame,
		Name:          p.Name,
		Category:      p.Category,
		Stage:         p.Stage,
		ParentID:      parentID,
		MaxTemp:       p.MaxTemp,
		MaxThrust:     p.MaxThrust,
		BreakingForce: p.BreakingForce,
		ExplosiveFuel: p.ExplosiveFuel,
	}
}

// PartStateToCore converts a GORM model.PartStateRecord to a core.PartState.
func PartStateToCore(s model.PartStateRecord) core.PartState {
	return core.PartState{
		PartID:       s.PartID,
		Time:         s.Time,
		CaptureFrame: s.CaptureFrame,
		Temperature:  s.Temperature,
		ThrustPct:    s.ThrustPct,
		Attached:     s.Attached,
		Doomed:       s.Doomed,
	}
}

// TelemetryRecordToCore converts a GORM model.TelemetryRecord to a core.TelemetryFrame.
func TelemetryRecordToCore(r model.TelemetryRecord) core.TelemetryFrame {
	return core.TelemetryFrame{
		Time:         r.Time,
		CaptureFrame: r.CaptureFrame,
		MET:          r.MET,
		Altitude:     r.Altitude,
		Velocity:     r.Velocity,
		Throttle:     r.Throttle,
		Mass:         r.Mass,
		Stage:        r.Stage,
		Position:     pointToPosition3D(r.Position),
	}
}

// FailureRecordToCore converts a GORM model.FailureRecord to a core.FailureEvent.
func FailureRecordToCore(r model.FailureRecord) core.FailureEvent {
	return core.FailureEvent{
		Time:         r.Time,
		CaptureFrame: r.CaptureFrame,
		PartID:       r.PartID,
		PartName:     r.PartName,
		FailureType:  r.FailureType,
		Phase:        r.Phase,
		Message:      r.Message,
	}
}

// ExplosionRecordToCore converts a GORM model.ExplosionRecord to a core.ExplosionEvent.
func ExplosionRecordToCore(r model.ExplosionRecord) core.ExplosionEvent {
	var lastState []any
	if len(r.LastState) > 0 {
		_ = json.Unmarshal(r.LastState, &lastState)
	}

	return core.ExplosionEvent{
		Time:         r.Time,
		CaptureFrame: r.CaptureFrame,
		PartID:       r.PartID,
		PartName:     r.PartName,
		Cause:        r.Cause,
		Altitude:     r.Altitude,
		LastState:    lastState,
	}
}

// AbortRecordToCore converts a GORM model.AbortRecord to a core.AbortEvent.
func AbortRecordToCore(r model.AbortRecord) core.AbortEvent {
	return core.AbortEvent{
		Time:         r.Time,
		CaptureFrame: r.CaptureFrame,
		Automatic:    r.Automatic,
		Reason:       r.Reason,
	}
}

// GeneralEventToCore converts a GORM model.GeneralEvent to a core.GeneralEvent.
func GeneralEventToCore(e model.GeneralEvent) core.GeneralEvent {
	var extraData map[string]any
	if len(e.ExtraData) > 0 {
		_ = json.Unmarshal(e.ExtraData, &extraData)
	}

	return core.GeneralEvent{
		Time:         e.Time,
		CaptureFrame: e.CaptureFrame,
		Name:         e.Name,
		Message:      e.Message,
		ExtraData:    extraData,
	}
}
