package v1

import (
	"testing"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

func TestParentToInt(t *testing.T) {
	root := uint16(0)
	tank := uint16(7)

	tests := []struct {
		name     string
		input    *uint16
		expected int
	}{
		{"nil is root", nil, -1},
		{"zero parent", &root, 0},
		{"regular parent", &tank, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parentToInt(tt.input))
		})
	}
}

func TestBuildEmptyFlight(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Empty", Tag: "sandbox"},
		Site:   &core.LaunchSite{Name: "KSC Launch Pad", Body: "Kerbin"},
		Parts:  make(map[uint16]*PartRecord),
	}

	export := Build(data)

	assert.Equal(t, "Empty", export.CraftName)
	assert.Equal(t, "sandbox", export.Tag)
	assert.Equal(t, "KSC Launch Pad", export.SiteName)
	assert.Equal(t, "Kerbin", export.Body)
	assert.Empty(t, export.Parts)
	assert.Empty(t, export.Telemetry)
	assert.Empty(t, export.Events)
	assert.Equal(t, 0, export.EndFrame)
}

func TestBuildWithFlightMetadata(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{
			CraftName:     "Kerbal X",
			Tag:           "career",
			Seed:          1337,
			CaptureDelay:  1.5,
			EngineVersion: "0.4.2",
			ConfigSnapshot: map[string]any{
				"chanceOfRUD": 0.02,
			},
		},
		Site:  &core.LaunchSite{Name: "Woomerang", Body: "Kerbin"},
		Parts: make(map[uint16]*PartRecord),
	}

	export := Build(data)

	assert.Equal(t, "Kerbal X", export.CraftName)
	assert.Equal(t, "career", export.Tag)
	assert.Equal(t, int64(1337), export.Seed)
	assert.Equal(t, float32(1.5), export.CaptureDelay)
	assert.Equal(t, "0.4.2", export.EngineVersion)
	assert.Equal(t, "Woomerang", export.SiteName)
	assert.Equal(t, 0.02, export.Config["chanceOfRUD"])
}

func TestBuildNilConfigDefaultsToEmpty(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Parts:  make(map[uint16]*PartRecord),
	}

	export := Build(data)

	require.NotNil(t, export.Config)
	assert.Empty(t, export.Config)
}

func TestBuildWithFinalizedResult(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Result: &core.FlightResult{
			Outcome:     core.OutcomeFailed,
			DurationSec: 42.5,
			EndFrame:    500,
		},
		Parts: make(map[uint16]*PartRecord),
		Telemetry: []core.TelemetryFrame{
			{CaptureFrame: 120},
		},
	}

	export := Build(data)

	assert.Equal(t, core.OutcomeFailed, export.Outcome)
	assert.Equal(t, 42.5, export.DurationSec)
	// The finalized end frame wins over the highest frame seen
	assert.Equal(t, 500, export.EndFrame)
}

func TestBuildWithPart(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Parts: map[uint16]*PartRecord{
			5: {
				Part: core.PartInfo{
					ID: 5, Name: "LV-T45 Swivel Liquid Fuel Engine", Category: "engine", Stage: 1, JoinFrame: 10,
				},
				States: []core.PartState{
					{PartID: 5, CaptureFrame: 10, Temperature: 290.0, ThrustPct: 1.0, Attached: true, Doomed: false},
					{PartID: 5, CaptureFrame: 20, Temperature: 850.5, ThrustPct: 0.6, Attached: true, Doomed: true},
				},
			},
		},
	}

	export := Build(data)

	// Sparse array: part at index 5
	require.Len(t, export.Parts, 6)
	part := export.Parts[5]

	assert.Equal(t, uint16(5), part.ID)
	assert.Equal(t, "LV-T45 Swivel Liquid Fuel Engine", part.Name)
	assert.Equal(t, "engine", part.Category)
	assert.Equal(t, 1, part.Stage)
	assert.Equal(t, -1, part.Parent)
	assert.Equal(t, 10, part.StartFrameNum)

	// Check state rows - v1 format: [frameNum, temperature, thrustPct, attached, doomed]
	require.Len(t, part.States, 2)
	row := part.States[0]
	assert.Equal(t, uint(10), row[0])
	assert.Equal(t, 290.0, row[1])
	assert.Equal(t, 1.0, row[2])
	assert.Equal(t, 1, row[3]) // attached
	assert.Equal(t, 0, row[4]) // doomed

	row2 := part.States[1]
	assert.Equal(t, uint(20), row2[0])
	assert.Equal(t, 1, row2[4]) // doomed mid-flight

	// EndFrame should be max state frame
	assert.Equal(t, 20, export.EndFrame)
}

func TestBuildWithChildPart(t *testing.T) {
	parentID := uint16(1)
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Parts: map[uint16]*PartRecord{
			1: {Part: core.PartInfo{ID: 1, Name: "Mk1 Command Pod", Category: "commandPod"}},
			2: {Part: core.PartInfo{ID: 2, Name: "FL-T400 Fuel Tank", Category: "fuelTank", ParentID: &parentID}},
		},
	}

	export := Build(data)

	require.Len(t, export.Parts, 3)
	assert.Equal(t, -1, export.Parts[1].Parent)
	assert.Equal(t, 1, export.Parts[2].Parent)
}

func TestBuildPartsSparseArray(t *testing.T) {
	// Test that the parts array is sparse with correct indexing
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Parts: map[uint16]*PartRecord{
			3:  {Part: core.PartInfo{ID: 3, Name: "Part3"}},
			7:  {Part: core.PartInfo{ID: 7, Name: "Part7"}},
			15: {Part: core.PartInfo{ID: 15, Name: "Part15"}},
		},
	}

	export := Build(data)

	// Max ID is 15, so array length should be 16
	require.Len(t, export.Parts, 16)

	// Check parts at their correct indices
	assert.Equal(t, "Part3", export.Parts[3].Name)
	assert.Equal(t, "Part7", export.Parts[7].Name)
	assert.Equal(t, "Part15", export.Parts[15].Name)

	// Placeholder entries should be empty
	assert.Equal(t, "", export.Parts[0].Name)
	assert.Equal(t, "", export.Parts[5].Name)
}

func TestBuildWithTelemetry(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Parts:  make(map[uint16]*PartRecord),
		Telemetry: []core.TelemetryFrame{
			{CaptureFrame: 0, MET: 0.0, Altitude: 68.4, Velocity: 0.0, Throttle: 1.0, Mass: 18200.0, Stage: 2, Position: core.Position3D{X: 0, Y: 0, Z: 68.4}},
			{CaptureFrame: 30, MET: 30.0, Altitude: 4250.0, Velocity: 182.5, Throttle: 1.0, Mass: 14750.0, Stage: 2, Position: core.Position3D{X: 120, Y: 85, Z: 4250.0}},
		},
	}

	export := Build(data)

	// v1 format: [frameNum, met, altitude, velocity, throttle, mass, stage, [x, y, z]]
	require.Len(t, export.Telemetry, 2)
	row := export.Telemetry[1]
	require.Len(t, row, 8)
	assert.Equal(t, uint(30), row[0])
	assert.Equal(t, 30.0, row[1])
	assert.Equal(t, 4250.0, row[2])
	assert.Equal(t, 182.5, row[3])
	assert.Equal(t, 1.0, row[4])
	assert.Equal(t, 14750.0, row[5])
	assert.Equal(t, 2, row[6])
	pos := row[7].([]float64)
	require.Len(t, pos, 3)
	assert.Equal(t, 120.0, pos[0])
	assert.Equal(t, 85.0, pos[1])
	assert.Equal(t, 4250.0, pos[2])

	assert.Equal(t, 30, export.EndFrame)
}

func TestBuildMaxFrameFromMultipleSources(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Parts: map[uint16]*PartRecord{
			1: {
				Part: core.PartInfo{ID: 1},
				States: []core.PartState{
					{PartID: 1, CaptureFrame: 50},
					{PartID: 1, CaptureFrame: 100},
				},
			},
		},
		Telemetry: []core.TelemetryFrame{
			{CaptureFrame: 75},
			{CaptureFrame: 150}, // Max frame
		},
	}

	export := Build(data)

	assert.Equal(t, 150, export.EndFrame)
}

func TestBuildWithFailureEvents(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Parts:  make(map[uint16]*PartRecord),
		FailureEvents: []core.FailureEvent{
			{CaptureFrame: 620, PartID: 7, PartName: "LV-T45 Swivel Liquid Fuel Engine", FailureType: "engine", Phase: "Warning", Message: "Underthrust warning"},
		},
	}

	export := Build(data)

	// v1 format: [frameNum, "failure", partId, [failureType, phase], message]
	require.Len(t, export.Events, 1)
	evt := export.Events[0]
	require.Len(t, evt, 5)
	assert.Equal(t, uint(620), evt[0])
	assert.Equal(t, "failure", evt[1])
	assert.Equal(t, uint16(7), evt[2])
	detail := evt[3].([]any)
	assert.Equal(t, "engine", detail[0])
	assert.Equal(t, "Warning", detail[1])
	assert.Equal(t, "Underthrust warning", evt[4])
}

func TestBuildWithExplosionEvents(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Parts:  make(map[uint16]*PartRecord),
		Explosions: []core.ExplosionEvent{
			{CaptureFrame: 700, PartID: 7, PartName: "LV-T45 Swivel Liquid Fuel Engine", Cause: core.CauseOverheat, Altitude: 1975.0},
		},
	}

	export := Build(data)

	// v1 format: [frameNum, "exploded", partId, cause, altitude]
	require.Len(t, export.Events, 1)
	evt := export.Events[0]
	require.Len(t, evt, 5)
	assert.Equal(t, uint(700), evt[0])
	assert.Equal(t, "exploded", evt[1])
	assert.Equal(t, uint16(7), evt[2])
	assert.Equal(t, core.CauseOverheat, evt[3])
	assert.Equal(t, 1975.0, evt[4])
}

func TestBuildWithAbortEvents(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Parts:  make(map[uint16]*PartRecord),
		Aborts: []core.AbortEvent{
			{CaptureFrame: 705, Automatic: true, Reason: "part destruction imminent"},
			{CaptureFrame: 710, Automatic: false, Reason: "pilot abort"},
		},
	}

	export := Build(data)

	// v1 format: [frameNum, "abort", automatic, reason]
	require.Len(t, export.Events, 2)
	evt := export.Events[0]
	require.Len(t, evt, 4)
	assert.Equal(t, uint(705), evt[0])
	assert.Equal(t, "abort", evt[1])
	assert.Equal(t, 1, evt[2])
	assert.Equal(t, "part destruction imminent", evt[3])

	assert.Equal(t, 0, export.Events[1][2])
}

func TestBuildWithGeneralEvents(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Parts:  make(map[uint16]*PartRecord),
		GeneralEvents: []core.GeneralEvent{
			{CaptureFrame: 10, Name: "staging", Message: "Stage 1 separation"},
			{CaptureFrame: 20, Name: "custom", Message: "[-1,-1,-1,-1]"}, // JSON array
			{CaptureFrame: 30, Name: "data", Message: `{"key":"value"}`}, // JSON object
			{CaptureFrame: 40, Name: "invalid", Message: "[1,2,3"},       // Invalid JSON
		},
	}

	export := Build(data)

	require.Len(t, export.Events, 4)

	// Plain string message
	assert.Equal(t, uint(10), export.Events[0][0])
	assert.Equal(t, "staging", export.Events[0][1])
	assert.Equal(t, "Stage 1 separation", export.Events[0][2])

	// JSON array should be parsed
	assert.Equal(t, uint(20), export.Events[1][0])
	parsedArray := export.Events[1][2].([]any)
	assert.Len(t, parsedArray, 4)

	// JSON object should be parsed
	parsedObj := export.Events[2][2].(map[string]any)
	assert.Equal(t, "value", parsedObj["key"])

	// Invalid JSON stays as string
	assert.Equal(t, "[1,2,3", export.Events[3][2])
}

func TestBuildWithNoPartsButEvents(t *testing.T) {
	data := &FlightData{
		Flight: &core.Flight{CraftName: "Test"},
		Parts:  make(map[uint16]*PartRecord),
		GeneralEvents: []core.GeneralEvent{
			{CaptureFrame: 10, Name: "test", Message: "msg"},
		},
	}

	export := Build(data)

	assert.Empty(t, export.Parts)
	require.Len(t, export.Events, 1)
}
