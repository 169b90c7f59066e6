// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/model"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// position3DToPoint converts a core.Position3D to a PostGIS geom.Point
func position3DToPoint(p core.Position3D) geom.Point {
	coords := geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}, Z: p.Z, Type: geom.DimXYZ}
	return geom.NewPoint(coords)
}

// trackToLineString converts a ground track to a geom.LineString.
// Altitude is dropped; a ground track is the surface projection of the path.
func trackToLineString(track []core.Position3D) geom.LineString {
	if len(track) == 0 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, len(track)*2)
	for _, pt := range track {
		coords = append(coords, pt.X, pt.Y)
	}
	seq := geom.NewSequence(coords, geom.DimXY)
	return geom.NewLineString(seq)
}

// stateToJSON converts a raw state row to datatypes.JSON for DB storage.
func stateToJSON(state []any) datatypes.JSON {
	if len(state) == 0 {
		return datatypes.JSON("null")
	}
	data, _ := json.Marshal(state)
	return datatypes.JSON(data)
}

// CoreToLaunchSite converts a core.LaunchSite to a GORM model.LaunchSite.
func CoreToLaunchSite(s core.LaunchSite) model.LaunchSite {
	return model.LaunchSite{
		Name:            s.Name,
		Body:            s.Body,
		Latitude:        float32(s.Latitude),
		Longitude:       float32(s.Longitude),
		Elevation:       float32(s.Elevation),
		AtmosphereDepth: s.AtmosphereDepth,
		Location:        position3DToPoint(s.Location),
	}
}

// CoreToFlight converts a core.Flight to a GORM model.Flight.
// The ground track is attached separately at flight end.
func CoreToFlight(f core.Flight) model.Flight {
	var config datatypes.JSON
	if len(f.ConfigSnapshot) > 0 {
		config, _ = json.Marshal(f.ConfigSnapshot)
	} else {
		config = datatypes.JSON("{}")
	}

	return model.Flight{
		CraftName:     f.CraftName,
		Tag:           f.Tag,
		StartTime:     f.StartTime,
		LaunchSiteID:  f.LaunchSiteID,
		CaptureDelay:  f.CaptureDelay,
		Seed:          f.Seed,
		EngineVersion: f.EngineVersion,
		Config:        config,
		Outcome:       f.Outcome,
		DurationSec:   f.DurationSec,
		EndFrame:      f.EndFrame,
	}
}

// ResultToFlight applies a core.FlightResult to a GORM model.Flight.
func ResultToFlight(r core.FlightResult, f *model.Flight) {
	f.Outcome = r.Outcome
	f.DurationSec = r.DurationSec
	f.EndFrame = r.EndFrame
	f.GroundTrack = trackToLineString(r.GroundTrack)
}

// CoreToPartRecord converts a core.PartInfo to a GORM model.PartRecord.
// core.PartInfo.ID maps to GORM PartRecord.PartID.
func CoreToPartRecord(p core.PartInfo) model.PartRecord {
	var parentID sql.NullInt32
	if p.ParentID != nil {
		parentID = sql.NullInt32{Int32: int32(*p.ParentID), Valid: true}
	}

	return model.PartRecord{
		PartID:        p.ID,
		JoinTime:      p.JoinTime,
		JoinFrame:     p.JoinFrame,
		Name:          p.Name,
		Category:      p.Category,
		Stage:         p.Stage,
		ParentPartID:  parentID,
		MaxTemp:       p.MaxTemp,
		MaxThrust:     p.MaxThrust,
		BreakingForce: p.BreakingForce,
		ExplosiveFuel: p.ExplosiveFuel,
	}
}

// CoreToPartState converts a core.PartState to a GORM model.PartStateRecord.
func CoreToPartState(s core.PartState) model.PartStateRecord {
	return model.PartStateRecord{
		PartID:       s.PartID,
		Time:         s.Time,
		CaptureFrame: s.CaptureFrame,
		Temperature:  s.Temperature,
		ThrustPct:    s.ThrustPct,
		Attached:     s.Attached,
		Doomed:       s.Doomed,
	}
}

// CoreToTelemetryRecord converts a core.TelemetryFrame to a GORM model.TelemetryRecord.
func CoreToTelemetryRecord(f core.TelemetryFrame) model.TelemetryRecord {
	return model.TelemetryRecord{
		Time:         f.Time,
		CaptureFrame: f.CaptureFrame,
		MET:          f.MET,
		Altitude:     f.Altitude,
		Velocity:     f.Velocity,
		Throttle:     f.Throttle,
		Mass:         f.Mass,
		Stage:        f.Stage,
		Position:     position3DToPoint(f.Position),
		ElevationASL: float32(f.Position.Z),
	}
}

// CoreToFailureRecord converts a core.FailureEvent to a GORM model.FailureRecord.
func CoreToFailureRecord(e core.FailureEvent) model.FailureRecord {
	return model.FailureRecord{
		Time:         e.Time,
		CaptureFrame: e.CaptureFrame,
		PartID:       e.PartID,
		PartName:     e.PartName,
		FailureType:  e.FailureType,
		Phase:        e.Phase,
		Message:      e.Message,
	}
}

// CoreToExplosionRecord converts a core.ExplosionEvent to a GORM model.ExplosionRecord.
func CoreToExplosionRecord(e core.ExplosionEvent) model.ExplosionRecord {
	return model.ExplosionRecord{
		Time:         e.Time,
		CaptureFrame: e.CaptureFrame,
		PartID:       e.PartID,
		PartName:     e.PartName,
		Cause:        e.Cause,
		Altitude:     e.Altitude,
		LastState:    stateToJSON(e.LastState),
	}
}

// CoreToAbortRecord converts a core.AbortEvent to a GORM model.AbortRecord.
func CoreToAbortRecord(e core.AbortEvent) model.AbortRecord {
	return model.AbortRecord{
		Time:         e.Time,
		CaptureFrame: e.CaptureFrame,
		Automatic:    e.Automatic,
		Reason:       e.Reason,
	}
}

// CoreToGeneralEvent converts a core.GeneralEvent to a GORM model.GeneralEvent.
func CoreToGeneralEvent(e core.GeneralEvent) model.GeneralEvent {
	var extraData datatypes.JSON
	if len(e.ExtraData) > 0 {
		extraData, _ = json.Marshal(e.ExtraData)
	} else {
		extraData = datatypes.JSON("{}")
	}

	return model.GeneralEvent{
		Time:         e.Time,
		CaptureFrame: e.CaptureFrame,
		Name:         e.Name,
		Message:      e.Message,
		ExtraData:    extraData,
	}
}
