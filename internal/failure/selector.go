package failure

import (
	"fmt"
	"math"
)

// chooseStartingPart picks the failure target uniformly across the
// concatenation of the four candidate pools, so a category with more members
// is proportionally more likely. Returns false when every pool is empty.
// On success it also fixes the session timers and resets the counters.
func (e *Engine) chooseStartingPart() bool {
	engines := e.deps.Vehicle.ActiveEngineParts()
	decouplers := e.deps.Vehicle.RadialDecouplers()
	surfaces := e.deps.Vehicle.ControlSurfaces()
	struts := e.deps.Vehicle.StrutsAndFuelLines()

	total := len(engines) + len(decouplers) + len(surfaces) + len(struts)
	if total == 0 {
		return false
	}

	idx := e.deps.Rand.IntRange(0, total)
	switch {
	case idx < len(engines):
		e.startingPart = engines[idx]
		e.failureType = FailureEngine
	case idx < len(engines)+len(decouplers):
		e.startingPart = decouplers[idx-len(engines)]
		e.failureType = FailureRadialDecoupler
	case idx < len(engines)+len(decouplers)+len(surfaces):
		e.startingPart = surfaces[idx-len(engines)-len(decouplers)]
		e.failureType = FailureControlSurface
	default:
		e.startingPart = struts[idx-len(engines)-len(decouplers)-len(surfaces)]
		e.failureType = FailureStrutOrFuelLine
	}

	if e.failureType == FailureEngine {
		// upstream classification guarantees exactly one engine module on
		// an engine-capable part; anything else is corrupted state
		if n := len(e.startingPart.Engines); n != 1 {
			panic(fmt.Sprintf("failure: engine part %q has %d engine modules, want 1",
				e.startingPart.Name, n))
		}
		e.engineModule = e.startingPart.Engines[0]
		e.overThrust = e.deps.Rand.Float64() < 0.5
	}

	e.ticksBetween = int(math.Round(e.deps.TicksPerSecond * e.cfg.DelayBetweenPartFailures))
	if e.ticksBetween < 1 {
		e.ticksBetween = 1
	}
	e.overload = 0
	e.decouplerForceCnt = 0
	e.underStart = 0
	e.underEnd = 0
	return true
}
