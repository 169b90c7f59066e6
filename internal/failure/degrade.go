package failure

import (
	"fmt"
	"math"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// underThrustWindow is the resample period for the under-thrust throttle
// target, in simulated seconds.
const underThrustWindow = 0.5

// decouplerForceLimit is the structural counter value past which the part
// breaks loose.
const decouplerForceLimit = 20

// shouldDegrade gates the interval step: engine failures need the engine to
// still be producing thrust, structural failures always accumulate.
func (e *Engine) shouldDegrade() bool {
	if e.failureType != FailureEngine {
		return true
	}
	return e.engineModule.CurrentThrust > 0
}

func (e *Engine) degradeTarget() {
	switch {
	case e.failureType == FailureEngine && e.overThrust:
		e.degradeOverThrust()
	case e.failureType == FailureEngine:
		e.degradeUnderThrust()
	default:
		e.degradeStructural()
	}
}

// degradeOverThrust pushes the engine past its rated output: the overload
// accumulator grows with throttle, is applied as an upward force, and the
// part heats toward its temperature limit.
func (e *Engine) degradeOverThrust() {
	throttle := e.engineModule.Throttle()
	e.overload += math.Round(e.engineModule.MaxThrust / 30.0 * throttle)
	e.deps.Physics.ApplyForce(e.startingPart, e.overload)
	e.deps.Physics.AddHeat(e.startingPart, e.startingPart.MaxTemperature/20.0*throttle)
}

// degradeUnderThrust wanders the throttle limiter: every half second a new
// target percentage is drawn and the applied override is interpolated
// linearly toward it across the window. No heat in this mode.
func (e *Engine) degradeUnderThrust() {
	now := e.now()
	if now-e.underRefreshAt >= underThrustWindow {
		e.underStart = e.underEnd
		e.underEnd = e.sampleUnderThrustPct()
		e.underRefreshAt = now
	}
	frac := (now - e.underRefreshAt) / underThrustWindow
	pct := e.underStart + (e.underEnd-e.underStart)*frac
	e.deps.Physics.SetThrottlePct(e.startingPart, pct)
}

// sampleUnderThrustPct draws the next degraded throttle percentage.
func (e *Engine) sampleUnderThrustPct() float64 {
	return (0.9 - e.deps.Rand.Float64()/2.0) * 100.0
}

// degradeStructural accumulates breaking force on a decoupler, control
// surface or strut; past the limit the part is wrenched off its joint.
func (e *Engine) degradeStructural() {
	e.decouplerForceCnt++
	if e.decouplerForceCnt > decouplerForceLimit {
		e.deps.Physics.Decouple(e.startingPart, e.startingPart.BreakingForce+1)
	}
}

// destroyed evaluates the destruction condition. Checked every tick, not
// only on interval ticks.
func (e *Engine) destroyed() (cause string, ok bool) {
	if e.startingPart.Temperature >= e.startingPart.MaxTemperature {
		return core.CauseOverheat, true
	}
	if e.decouplerForceCnt > decouplerForceLimit {
		return core.CauseStructural, true
	}
	return "", false
}

// emitDegradationWarning re-warns the operator at most once per simulated
// second, and only when the temperature has risen since the last warning or
// the structural counter is past its limit.
func (e *Engine) emitDegradationWarning() {
	now := e.now()
	if now-e.lastWarningAt < 1.0 {
		return
	}
	tempRose := e.startingPart.Temperature > e.lastWarnedTemp
	if !tempRose && e.decouplerForceCnt <= decouplerForceLimit {
		return
	}
	e.lastWarningAt = now
	e.lastWarnedTemp = e.startingPart.Temperature
	if e.cfg.HighlightFailingPart {
		e.deps.Notifier.Highlight(e.startingPart, true)
	}
	switch {
	case e.failureType == FailureEngine && e.overThrust:
		e.deps.Notifier.Warn(fmt.Sprintf("%s overheating: %.0f/%.0f",
			e.startingPart.Name, e.startingPart.Temperature, e.startingPart.MaxTemperature))
	case e.failureType == FailureEngine:
		e.deps.Notifier.Warn(fmt.Sprintf("%s is losing thrust", e.startingPart.Name))
	default:
		e.deps.Notifier.Warn(fmt.Sprintf("%s structural failure imminent", e.startingPart.Name))
	}
}
