package v1

import (
	"encoding/json"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// FlightData contains all the data needed to build an export
type FlightData struct {
	Flight *core.Flight
	Site   *core.LaunchSite
	Result *core.FlightResult
	Parts  map[uint16]*PartRecord

	Telemetry     []core.TelemetryFrame
	FailureEvents []core.FailureEvent
	Explosions    []core.ExplosionEvent
	Aborts        []core.AbortEvent
	GeneralEvents []core.GeneralEvent
}

// PartRecord groups a part with all its state samples
type PartRecord struct {
	Part   core.PartInfo
	States []core.PartState
}

// Build creates an Export from the recorded flight data
func Build(data *FlightData) Export {
	config := data.Flight.ConfigSnapshot
	if config == nil {
		config = map[string]any{}
	}

	export := Export{
		EngineVersion: data.Flight.EngineVersion,
		CraftName:     data.Flight.CraftName,
		Tag:           data.Flight.Tag,
		Seed:          data.Flight.Seed,
		CaptureDelay:  data.Flight.CaptureDelay,
		Config:        config,
		Parts:         make([]Part, 0),
		Telemetry:     make([][]any, 0, len(data.Telemetry)),
		Events:        make([][]any, 0),
	}
	if data.Site != nil {
		export.SiteName = data.Site.Name
		export.Body = data.Site.Body
	}
	if data.Result != nil {
		export.Outcome = data.Result.Outcome
		export.DurationSec = data.Result.DurationSec
	}

	var maxFrame uint = 0

	// Find max part ID to size the parts array correctly
	// The review frontend uses parts[id] to look up parts, so array index must equal part ID
	var maxPartID uint16 = 0
	hasParts := len(data.Parts) > 0
	for _, record := range data.Parts {
		if record.Part.ID > maxPartID {
			maxPartID = record.Part.ID
		}
	}

	// Create parts array with placeholder entries
	// Index N will contain the part with ID=N
	if hasParts {
		export.Parts = make([]Part, maxPartID+1)
	}

	// Convert parts - place at index matching their sim-assigned ID
	for _, record := range data.Parts {
		part := Part{
			ID:            record.Part.ID,
			Name:          record.Part.Name,
			Category:      record.Part.Category,
			Stage:         record.Part.Stage,
			Parent:        parentToInt(record.Part.ParentID),
			StartFrameNum: int(record.Part.JoinFrame),
			States:        make([][]any, 0, len(record.States)),
		}

		for _, state := range record.States {
			// v1 format: [frameNum, temperature, thrustPct, attached, doomed]
			row := []any{
				state.CaptureFrame,
				state.Temperature,
				state.ThrustPct,
				boolToInt(state.Attached),
				boolToInt(state.Doomed),
			}
			part.States = append(part.States, row)
			if state.CaptureFrame > maxFrame {
				maxFrame = state.CaptureFrame
			}
		}

		export.Parts[record.Part.ID] = part
	}

	// Convert telemetry frames
	// Format: [frameNum, met, altitude, velocity, throttle, mass, stage, [x, y, z]]
	for _, f := range data.Telemetry {
		export.Telemetry = append(export.Telemetry, []any{
			f.CaptureFrame,
			f.MET,
			f.Altitude,
			f.Velocity,
			f.Throttle,
			f.Mass,
			f.Stage,
			[]float64{f.Position.X, f.Position.Y, f.Position.Z},
		})
		if f.CaptureFrame > maxFrame {
			maxFrame = f.CaptureFrame
		}
	}

	// The finalized end frame wins; fall back to the highest frame seen
	if data.Result != nil && data.Result.EndFrame > 0 {
		export.EndFrame = int(data.Result.EndFrame)
	} else {
		export.EndFrame = int(maxFrame)
	}

	// Convert failure events
	// Format: [frameNum, "failure", partId, [failureType, phase], message]
	for _, evt := range data.FailureEvents {
		export.Events = append(export.Events, []any{
			evt.CaptureFrame,
			"failure",
			evt.PartID,
			[]any{evt.FailureType, evt.Phase},
			evt.Message,
		})
	}

	// Convert explosion events
	// Format: [frameNum, "exploded", partId, cause, altitude]
	for _, evt := range data.Explosions {
		export.Events = append(export.Events, []any{
			evt.CaptureFrame,
			"exploded",
			evt.PartID,
			evt.Cause,
			evt.Altitude,
		})
	}

	// Convert abort events
	// Format: [frameNum, "abort", automatic, reason]
	for _, evt := range data.Aborts {
		export.Events = append(export.Events, []any{
			evt.CaptureFrame,
			"abort",
			boolToInt(evt.Automatic),
			evt.Reason,
		})
	}

	// Convert general events
	// Format: [frameNum, "type", message]
	for _, evt := range data.GeneralEvents {
		// Try to parse message as JSON - if it's a valid JSON array/object, use parsed value
		// Otherwise keep as string
		var message any = evt.Message
		if len(evt.Message) > 0 && (evt.Message[0] == '[' || evt.Message[0] == '{') {
			var parsed any
			if err := json.Unmarshal([]byte(evt.Message), &parsed); err == nil {
				message = parsed
			}
		}
		export.Events = append(export.Events, []any{
			evt.CaptureFrame,
			evt.Name,
			message,
		})
	}

	return export
}

// parentToInt converts an optional parent part ID to an int (-1 = root part)
func parentToInt(parent *uint16) int {
	if parent == nil {
		return -1
	}
	return int(*parent)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
