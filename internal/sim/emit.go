package sim

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/dispatcher"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/vessel"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// Emitter turns flight happenings into recorder commands. Every method
// builds one dispatcher event with the argument layout the parser expects
// and stamps it with the current capture frame, which the host loop owns.
type Emitter struct {
	dispatcher *dispatcher.Dispatcher
	log        *slog.Logger
	frame      func() uint
}

// NewEmitter wires an emitter to the recorder dispatcher. frame reports the
// capture frame to stamp on outgoing commands.
func NewEmitter(d *dispatcher.Dispatcher, log *slog.Logger, frame func() uint) *Emitter {
	return &Emitter{dispatcher: d, log: log, frame: frame}
}

func (e *Emitter) dispatch(command string, args []string) {
	_, err := e.dispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
	if err != nil {
		e.log.Error("Recorder command failed", "command", command, "error", err)
	}
}

func ffloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fuint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func fbool(v bool) string {
	return strconv.FormatBool(v)
}

// FlightNew announces a flight. cfgSnapshot is recorded as-is so the stored
// flight carries the failure options it launched with.
func (e *Emitter) FlightNew(craftName string, site Site, tag string, seed int64, captureDelay float64, engineVersion string, cfgSnapshot any) {
	siteJSON, err := json.Marshal(site)
	if err != nil {
		e.log.Error("Failed to encode site data", "site", site.Name, "error", err)
		siteJSON = []byte("{}")
	}
	cfgJSON, err := json.Marshal(cfgSnapshot)
	if err != nil {
		e.log.Error("Failed to encode config snapshot", "error", err)
		cfgJSON = []byte("{}")
	}
	e.dispatch(":FLIGHT:NEW:", []string{
		craftName,
		site.Name,
		tag,
		strconv.FormatInt(seed, 10),
		ffloat(captureDelay),
		engineVersion,
		string(cfgJSON),
		string(siteJSON),
	})
}

// PartNew registers a part of the craft with the recorder.
func (e *Emitter) PartNew(p *vessel.Part) {
	parent := "-1"
	if pp := p.Parent(); pp != nil {
		parent = strconv.FormatUint(uint64(pp.ID), 10)
	}
	var maxThrust float64
	if len(p.Engines) > 0 {
		maxThrust = p.Engines[0].MaxThrust
	}
	e.dispatch(":PART:NEW:", []string{
		fuint(e.frame()),
		strconv.FormatUint(uint64(p.ID), 10),
		parent,
		p.Name,
		p.Category.String(),
		strconv.Itoa(p.Stage),
		ffloat(p.MaxTemperature),
		ffloat(maxThrust),
		ffloat(p.BreakingForce),
		fbool(p.ExplosiveFuel),
	})
}

// PartState records a part's current condition.
func (e *Emitter) PartState(p *vessel.Part, doomed bool) {
	var thrustPct float64
	if m := p.IgnitedEngine(); m != nil && m.MaxThrust > 0 {
		thrustPct = m.CurrentThrust / m.MaxThrust * 100
	}
	e.dispatch(":PART:STATE:", []string{
		strconv.FormatUint(uint64(p.ID), 10),
		fuint(e.frame()),
		ffloat(p.Temperature),
		ffloat(thrustPct),
		fbool(p.Attached()),
		fbool(doomed),
	})
}

// Telemetry records one snapshot of the ascent state.
func (e *Emitter) Telemetry(met, altitude, velocity, throttle, mass float64, stage int, downrange float64) {
	e.dispatch(":TELEMETRY:", []string{
		fuint(e.frame()),
		ffloat(met),
		ffloat(altitude),
		ffloat(velocity),
		ffloat(throttle),
		ffloat(mass),
		strconv.Itoa(stage),
		fmt.Sprintf("%s,0,%s", ffloat(downrange), ffloat(altitude)),
	})
}

// FailureWarning records a failure warning against a part.
func (e *Emitter) FailureWarning(p *vessel.Part, failureType, phase, message string) {
	e.dispatch(":FAILURE:WARNING:", e.failureArgs(p, failureType, phase, message))
}

// FailureDestroyed records that a failing part reached destruction.
func (e *Emitter) FailureDestroyed(p *vessel.Part, failureType, phase, message string) {
	e.dispatch(":FAILURE:DESTROYED:", e.failureArgs(p, failureType, phase, message))
}

func (e *Emitter) failureArgs(p *vessel.Part, failureType, phase, message string) []string {
	return []string{
		fuint(e.frame()),
		strconv.FormatUint(uint64(p.ID), 10),
		p.Name,
		failureType,
		phase,
		message,
	}
}

// Exploded records the destruction of a part.
func (e *Emitter) Exploded(p *vessel.Part, cause string, altitude float64) {
	e.dispatch(":PART:EXPLODED:", []string{
		fuint(e.frame()),
		strconv.FormatUint(uint64(p.ID), 10),
		p.Name,
		cause,
		ffloat(altitude),
	})
}

// Abort records an abort action.
func (e *Emitter) Abort(automatic bool, reason string) {
	e.dispatch(":ABORT:", []string{
		fuint(e.frame()),
		fbool(automatic),
		reason,
	})
}

// Event records a general flight event. extra is optional structured data.
func (e *Emitter) Event(name, message string, extra map[string]any) {
	args := []string{fuint(e.frame()), name, message}
	if extra != nil {
		extraJSON, err := json.Marshal(extra)
		if err != nil {
			e.log.Error("Failed to encode event data", "event", name, "error", err)
		} else {
			args = append(args, string(extraJSON))
		}
	}
	e.dispatch(":EVENT:", args)
}

// FlightEnd closes out the flight with its outcome and ground track.
func (e *Emitter) FlightEnd(outcome string, durationSec float64, track []core.Position3D) {
	args := []string{
		fuint(e.frame()),
		outcome,
		ffloat(durationSec),
	}
	if len(track) >= 2 {
		coords := make([][]float64, len(track))
		for i, p := range track {
			coords[i] = []float64{p.X, p.Y, p.Z}
		}
		trackJSON, err := json.Marshal(coords)
		if err != nil {
			e.log.Error("Failed to encode ground track", "error", err)
		} else {
			args = append(args, string(trackJSON))
		}
	}
	e.dispatch(":FLIGHT:END:", args)
}
