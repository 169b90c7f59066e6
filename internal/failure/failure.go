// Package failure simulates one randomized equipment failure aboard an
// ascending craft: a candidate part is chosen, the operator is warned, the
// part degrades toward destruction, and structural failure then propagates
// through the part tree, destroying doomed parts on a fixed cadence.
//
// The engine is single threaded and poll driven: the host calls Tick once
// per simulation step and the engine never blocks. All time comes from the
// injected Clock, all randomness from the injected Rand.
package failure

import (
	"fmt"
	"math"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/vessel"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// Vehicle enumerates failure candidates and answers attachment queries.
// The engine reads the part tree through this interface and never mutates
// topology itself.
type Vehicle interface {
	ActiveEngineParts() []*vessel.Part
	RadialDecouplers() []*vessel.Part
	ControlSurfaces() []*vessel.Part
	StrutsAndFuelLines() []*vessel.Part
	Contains(p *vessel.Part) bool
	Altitude() float64
}

// Physics applies the engine's decisions to the craft. The engine decides
// what force or heat delta to apply; the physics layer owns the consequences.
type Physics interface {
	ApplyForce(p *vessel.Part, magnitude float64)
	AddHeat(p *vessel.Part, delta float64)
	SetThrottlePct(p *vessel.Part, pct float64)
	Decouple(p *vessel.Part, force float64)
	Explode(p *vessel.Part, cause string)
	TriggerAbort(reason string)
}

// Notifier surfaces warnings to the operator.
type Notifier interface {
	Warn(msg string)
	Highlight(p *vessel.Part, on bool)
	StartAlarm()
	StopAlarm()
}

// Recorder is the flight-data log sink. Records are free text.
type Recorder interface {
	Record(msg string)
}

// Clock supplies monotonic simulation time in seconds. Never wall clock.
type Clock interface {
	Now() float64
}

// Body describes the celestial body being launched from.
type Body struct {
	Name            string
	HasAtmosphere   bool
	AtmosphereDepth float64
}

// Config holds the tunable failure parameters.
type Config struct {
	InitialFailureProbability    float64
	MaxFailureAltitudePercentage float64
	MinTimeBeforeFailure         float64
	MaxTimeBeforeFailure         float64
	PreFailureWarningTime        float64
	DelayBetweenPartFailures     float64
	PropagationProbability       float64
	PropagationChanceDecreases   bool
	AutoAbort                    bool
	AutoAbortDelay               float64
	HighlightFailingPart         bool
}

// Deps are the collaborators one engine instance works against.
type Deps struct {
	Vehicle  Vehicle
	Physics  Physics
	Notifier Notifier
	Recorder Recorder
	Rand     Rand
	Clock    Clock
	// TicksPerSecond is the host's fixed simulation rate.
	TicksPerSecond float64
}

// Occurs reports whether a failure should be simulated at all: a single
// Bernoulli draw against the configured initial failure probability.
func Occurs(r Rand, probability float64) bool {
	return r.Float64() < probability
}

// Engine owns the state of one failure session. One instance per flight;
// sessions are never shared or restarted.
type Engine struct {
	cfg  Config
	deps Deps
	body Body

	phase             Phase
	launchTime        float64
	altitudeThreshold float64

	startingPart *vessel.Part
	failureType  FailureType
	engineModule *vessel.EngineModule
	overThrust   bool

	overload          float64
	underStart        float64
	underEnd          float64
	underRefreshAt    float64
	decouplerForceCnt int

	ticksBetween int
	ticksSince   int

	warningStart   float64
	lastWarningAt  float64
	lastWarnedTemp float64

	destructionAt    float64
	destructionCause string

	doomed []*vessel.Part
}

// New creates an engine for one ascent. The altitude threshold is drawn
// once, here. Bodies without an atmosphere never fail; their engines are
// born terminated.
func New(body Body, cfg Config, deps Deps) *Engine {
	e := &Engine{
		cfg:        cfg,
		deps:       deps,
		body:       body,
		launchTime: deps.Clock.Now(),
	}
	if !body.HasAtmosphere {
		e.phase = PhaseTerminated
		return e
	}
	e.altitudeThreshold = deps.Rand.Float64() * body.AtmosphereDepth * cfg.MaxFailureAltitudePercentage
	return e
}

// Phase returns the session's current lifecycle phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// StartingPart returns the selected target, nil before selection and after
// the target has been destroyed.
func (e *Engine) StartingPart() *vessel.Part {
	return e.startingPart
}

// Type returns the session's failure type, FailureNone before selection.
func (e *Engine) Type() FailureType {
	return e.failureType
}

// AltitudeThreshold returns the altitude drawn for the launch gate.
func (e *Engine) AltitudeThreshold() float64 {
	return e.altitudeThreshold
}

// Doomed returns the parts scheduled for cascade destruction.
func (e *Engine) Doomed() []*vessel.Part {
	return e.doomed
}

// Tick advances the session by one simulation step. It returns true while
// the session is waiting or active and false once terminated: no-atmosphere
// body, target detached mid failure, or doomed schedule exhausted.
func (e *Engine) Tick() bool {
	switch e.phase {
	case PhaseWaitingForAltitude:
		if !e.gatePassed() {
			return true
		}
		e.advance(PhaseArmed)
		return e.tickArmed()
	case PhaseArmed:
		return e.tickArmed()
	case PhaseWarning:
		return e.tickWarning()
	case PhaseDegrading:
		return e.tickDegrading()
	case PhaseDestructionPending:
		return e.tickDestructionPending()
	case PhaseExploding:
		return e.tickExploding()
	default:
		return false
	}
}

// gatePassed checks the launch gate: minimum time has elapsed and either
// the vehicle has climbed past the drawn threshold or the maximum time is up.
func (e *Engine) gatePassed() bool {
	elapsed := e.elapsed()
	if elapsed < e.cfg.MinTimeBeforeFailure {
		return false
	}
	return e.deps.Vehicle.Altitude() >= e.altitudeThreshold ||
		elapsed >= e.cfg.MaxTimeBeforeFailure
}

func (e *Engine) tickArmed() bool {
	if !e.chooseStartingPart() {
		// empty candidate pool, retried next tick
		return true
	}
	e.advance(PhaseWarning)
	e.warningStart = e.now()
	e.lastWarningAt = math.Inf(-1)
	e.deps.Notifier.StartAlarm()
	e.deps.Recorder.Record(fmt.Sprintf("%s failure imminent (%s)", e.startingPart.Name, e.failureType))
	return e.tickWarning()
}

func (e *Engine) tickWarning() bool {
	if !e.deps.Vehicle.Contains(e.startingPart) {
		return e.abortDetached()
	}
	now := e.now()
	if now-e.warningStart >= e.cfg.PreFailureWarningTime {
		e.advance(PhaseDegrading)
		e.ticksSince = -1
		e.lastWarnedTemp = e.startingPart.Temperature
		if e.failureType == FailureEngine && !e.overThrust {
			e.underStart = e.engineModule.ThrottlePct
			e.underEnd = e.sampleUnderThrustPct()
			e.underRefreshAt = now
		}
		return e.tickDegrading()
	}
	if now-e.lastWarningAt >= 1.0 {
		e.lastWarningAt = now
		if e.cfg.HighlightFailingPart {
			e.deps.Notifier.Highlight(e.startingPart, true)
		}
		e.deps.Notifier.Warn(fmt.Sprintf("Warning: %s failure imminent", e.startingPart.Name))
	}
	return true
}

func (e *Engine) tickDegrading() bool {
	e.ticksSince++
	if !e.deps.Vehicle.Contains(e.startingPart) {
		return e.abortDetached()
	}
	if e.ticksSince%e.ticksBetween == 0 && e.shouldDegrade() {
		e.degradeTarget()
	}
	e.emitDegradationWarning()
	if cause, destroyed := e.destroyed(); destroyed {
		e.destructionAt = e.now()
		e.destructionCause = cause
		e.deps.Recorder.Record(fmt.Sprintf("%s destroyed: %s", e.startingPart.Name, cause))
		if e.cfg.AutoAbort {
			e.advance(PhaseDestructionPending)
			return true
		}
		return e.finishDestruction()
	}
	return true
}

func (e *Engine) tickDestructionPending() bool {
	if !e.deps.Vehicle.Contains(e.startingPart) {
		return e.abortDetached()
	}
	if e.now()-e.destructionAt < e.cfg.AutoAbortDelay {
		return true
	}
	e.deps.Physics.TriggerAbort(fmt.Sprintf("%s destroyed: %s", e.startingPart.Name, e.destructionCause))
	return e.finishDestruction()
}

// finishDestruction explodes the starting part, computes the doomed set and
// hands the session to the explosion schedule. From here on the doomed list
// is the authority; the starting part reference is gone.
func (e *Engine) finishDestruction() bool {
	e.doomed = Propagate(e.startingPart, e.failureType,
		e.cfg.PropagationProbability, e.cfg.PropagationChanceDecreases, e.deps.Rand)
	if e.cfg.HighlightFailingPart {
		e.deps.Notifier.Highlight(e.startingPart, false)
	}
	e.deps.Physics.Explode(e.startingPart, e.destructionCause)
	e.startingPart = nil
	e.engineModule = nil
	e.ticksSince = -e.ticksBetween
	e.advance(PhaseExploding)
	return true
}

func (e *Engine) tickExploding() bool {
	e.ticksSince++
	if e.ticksSince%e.ticksBetween != 0 {
		return true
	}
	idx := e.ticksSince / e.ticksBetween
	if idx >= len(e.doomed) {
		return e.terminate()
	}
	p := e.doomed[idx]
	e.deps.Recorder.Record(fmt.Sprintf("%s destroyed: disassembly due to an earlier failure", p.Name))
	e.deps.Physics.Explode(p, core.CauseCascade)
	return true
}

func (e *Engine) abortDetached() bool {
	e.deps.Recorder.Record(fmt.Sprintf("%s is no longer attached to the vessel", e.startingPart.Name))
	if e.cfg.HighlightFailingPart {
		e.deps.Notifier.Highlight(e.startingPart, false)
	}
	e.startingPart = nil
	e.engineModule = nil
	return e.terminate()
}

func (e *Engine) terminate() bool {
	e.deps.Notifier.StopAlarm()
	e.advance(PhaseTerminated)
	return false
}

// advance moves the session forward. The phase only ever increases; a
// regression means corrupted session state.
func (e *Engine) advance(to Phase) {
	if to < e.phase {
		panic(fmt.Sprintf("failure: phase regression %s -> %s", e.phase, to))
	}
	e.phase = to
}

func (e *Engine) now() float64 {
	return e.deps.Clock.Now()
}

func (e *Engine) elapsed() float64 {
	return e.now() - e.launchTime
}
