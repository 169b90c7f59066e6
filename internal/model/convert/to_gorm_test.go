package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/model"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition3DToPoint(t *testing.T) {
	pos := core.Position3D{X: 100.5, Y: 200.5, Z: 50.0}
	pt := position3DToPoint(pos)

	coord, ok := pt.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 100.5, coord.XY.X)
	assert.Equal(t, 200.5, coord.XY.Y)
	assert.Equal(t, 50.0, coord.Z)
}

func TestTrackToLineString(t *testing.T) {
	track := []core.Position3D{
		{X: 0.0, Y: 0.0, Z: 70.0},
		{X: 12.5, Y: 3.0, Z: 4500.0},
		{X: 45.0, Y: 11.0, Z: 18000.0},
	}
	ls := trackToLineString(track)

	seq := ls.Coordinates()
	require.Equal(t, 3, seq.Length())
	assert.Equal(t, 0.0, seq.GetXY(0).X)
	assert.Equal(t, 45.0, seq.GetXY(2).X)
	assert.Equal(t, 11.0, seq.GetXY(2).Y)
}

func TestTrackToLineString_Empty(t *testing.T) {
	ls := trackToLineString(nil)
	assert.True(t, ls.IsEmpty())
}

func TestCoreToPartRecord_RootHasNullParent(t *testing.T) {
	record := CoreToPartRecord(core.PartInfo{
		ID:   0,
		Name: "Command Pod Mk1",
	})

	assert.False(t, record.ParentPartID.Valid)
}

func TestCoreToPartRecord_ParentSet(t *testing.T) {
	parent := uint16(3)
	record := CoreToPartRecord(core.PartInfo{
		ID:            7,
		Name:          "LV-T45 Liquid Fuel Engine",
		Category:      "engine",
		Stage:         1,
		ParentID:      &parent,
		MaxTemp:       2000,
		MaxThrust:     215,
		BreakingForce: 200,
	})

	assert.Equal(t, uint16(7), record.PartID)
	require.True(t, record.ParentPartID.Valid)
	assert.Equal(t, int32(3), record.ParentPartID.Int32)
	assert.Equal(t, "engine", record.Category)
	assert.Equal(t, 215.0, record.MaxThrust)
}

func TestCoreToFlight_EmptyConfigSnapshot(t *testing.T) {
	flight := CoreToFlight(core.Flight{CraftName: "Kerbal X"})
	assert.JSONEq(t, "{}", string(flight.Config))
}

func TestCoreToFlight_ConfigSnapshot(t *testing.T) {
	flight := CoreToFlight(core.Flight{
		CraftName: "Kerbal X",
		Seed:      42,
		ConfigSnapshot: map[string]any{
			"failureRatePerFlight": 0.02,
			"autoAbort":            false,
		},
	})

	var snapshot map[string]any
	require.NoError(t, json.Unmarshal(flight.Config, &snapshot))
	assert.Equal(t, 0.02, snapshot["failureRatePerFlight"])
	assert.Equal(t, false, snapshot["autoAbort"])
	assert.Equal(t, int64(42), flight.Seed)
}

func TestResultToFlight(t *testing.T) {
	flight := model.Flight{Outcome: ""}
	ResultToFlight(core.FlightResult{
		Outcome:     core.OutcomeFailed,
		DurationSec: 127.4,
		EndFrame:    6370,
		GroundTrack: []core.Position3D{{X: 0, Y: 0}, {X: 30, Y: 8}},
	}, &flight)

	assert.Equal(t, core.OutcomeFailed, flight.Outcome)
	assert.Equal(t, 127.4, flight.DurationSec)
	assert.Equal(t, uint(6370), flight.EndFrame)
	assert.Equal(t, 2, flight.GroundTrack.Coordinates().Length())
}

func TestCoreToTelemetryRecord(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	record := CoreToTelemetryRecord(core.TelemetryFrame{
		Time:         now,
		CaptureFrame: 310,
		MET:          6.2,
		Altitude:     842.0,
		Velocity:     96.5,
		Throttle:     1.0,
		Mass:         17.1,
		Stage:        2,
		Position:     core.Position3D{X: 4.0, Y: 1.0, Z: 842.0},
	})

	assert.Equal(t, now, record.Time)
	assert.Equal(t, uint(310), record.CaptureFrame)
	assert.Equal(t, 842.0, record.Altitude)
	assert.Equal(t, float32(842.0), record.ElevationASL)
}

func TestCoreToExplosionRecord_NoLastState(t *testing.T) {
	record := CoreToExplosionRecord(core.ExplosionEvent{
		PartID:   4,
		PartName: "FL-T400 Fuel Tank",
		Cause:    core.CauseCascade,
	})

	assert.Equal(t, "null", string(record.LastState))
}

func TestCoreToExplosionRecord_LastState(t *testing.T) {
	record := CoreToExplosionRecord(core.ExplosionEvent{
		CaptureFrame: 512,
		PartID:       2,
		PartName:     "LV-T45 Liquid Fuel Engine",
		Cause:        core.CauseOverheat,
		Altitude:     12400.5,
		LastState:    []any{uint16(2), 1975.0, 100.0, true, true},
	})

	var state []any
	require.NoError(t, json.Unmarshal(record.LastState, &state))
	require.Len(t, state, 5)
	assert.Equal(t, 1975.0, state[1])
	assert.Equal(t, core.CauseOverheat, record.Cause)
}

func TestCoreToGeneralEvent_EmptyExtraData(t *testing.T) {
	event := CoreToGeneralEvent(core.GeneralEvent{Name: "staging"})
	assert.JSONEq(t, "{}", string(event.ExtraData))
}
