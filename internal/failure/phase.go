package failure

import "fmt"

// Phase is the lifecycle state of a failure session. Phases only ever
// advance; comparisons may rely on the declaration order.
type Phase uint8

const (
	// PhaseWaitingForAltitude waits for the launch gate: minimum elapsed
	// time plus either the drawn altitude threshold or the maximum time.
	PhaseWaitingForAltitude Phase = iota
	// PhaseArmed has passed the gate but holds no target yet; candidate
	// selection retries every tick until a part is found.
	PhaseArmed
	// PhaseWarning notifies the operator before degradation begins.
	PhaseWarning
	// PhaseDegrading runs the per-type degradation model each tick.
	PhaseDegrading
	// PhaseDestructionPending holds a detected destruction until the
	// auto-abort delay elapses.
	PhaseDestructionPending
	// PhaseExploding walks the doomed-part schedule.
	PhaseExploding
	// PhaseTerminated is absorbing; Tick reports false from here on.
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseWaitingForAltitude:
		return "WaitingForAltitude"
	case PhaseArmed:
		return "Armed"
	case PhaseWarning:
		return "Warning"
	case PhaseDegrading:
		return "Degrading"
	case PhaseDestructionPending:
		return "DestructionPending"
	case PhaseExploding:
		return "Exploding"
	case PhaseTerminated:
		return "Terminated"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// FailureType selects which degradation and propagation rules apply.
type FailureType uint8

const (
	FailureNone FailureType = iota
	FailureEngine
	FailureRadialDecoupler
	FailureControlSurface
	FailureStrutOrFuelLine
)

func (t FailureType) String() string {
	switch t {
	case FailureNone:
		return "none"
	case FailureEngine:
		return "engine"
	case FailureRadialDecoupler:
		return "radialDecoupler"
	case FailureControlSurface:
		return "controlSurface"
	case FailureStrutOrFuelLine:
		return "strutOrFuelLine"
	}
	return fmt.Sprintf("failureType(%d)", uint8(t))
}
