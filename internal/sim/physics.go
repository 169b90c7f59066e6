package sim

import (
	"fmt"
	"log/slog"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/failure"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/vessel"
)

// session is the slice of the failure engine the host collaborators read
// back: which part started the failure and where the session stands. Bound
// after engine construction; stays nil for failure-free flights.
type session interface {
	StartingPart() *vessel.Part
	Type() failure.FailureType
	Phase() failure.Phase
}

// Physics applies failure-engine decisions to the ascent and reports the
// destructive ones to the recorder. The flight model has no per-part
// dynamics, so forces act on the whole stack and decoupled parts simply
// leave the tree.
type Physics struct {
	ascent  *Ascent
	emitter *Emitter
	log     *slog.Logger
	session session

	aborted     bool
	abortReason string
	explosions  int
}

var _ failure.Physics = (*Physics)(nil)

func NewPhysics(ascent *Ascent, emitter *Emitter, log *slog.Logger) *Physics {
	return &Physics{ascent: ascent, emitter: emitter, log: log}
}

// Bind attaches the failure session so destruction events can carry its
// failure type and phase.
func (ph *Physics) Bind(s session) {
	ph.session = s
}

// ApplyForce pushes the craft with the given force in kilonewtons.
func (ph *Physics) ApplyForce(p *vessel.Part, magnitude float64) {
	ph.ascent.AddImpulse(magnitude)
}

// AddHeat raises a part's temperature by delta.
func (ph *Physics) AddHeat(p *vessel.Part, delta float64) {
	p.AddTemperature(delta)
}

// SetThrottlePct pins the part's engine modules to a thrust limit,
// overriding the vessel throttle's share.
func (ph *Physics) SetThrottlePct(p *vessel.Part, pct float64) {
	for _, m := range p.Engines {
		m.ThrottlePct = pct
	}
}

// Decouple tears a part off the craft under the given force. The subtree
// below it leaves too.
func (ph *Physics) Decouple(p *vessel.Part, force float64) {
	ph.log.Warn("Part torn off", "part", p.Name, "partId", p.ID, "force", force)
	ph.emitter.Event("decouple", fmt.Sprintf("%s torn off under load", p.Name), map[string]any{
		"partId": p.ID,
		"force":  force,
	})
	ph.ascent.Remove(p)
}

// Explode destroys a part and removes its subtree from the craft. The part
// that started the failure closes the failure record; every other loss is
// collateral and gets only an explosion record.
func (ph *Physics) Explode(p *vessel.Part, cause string) {
	ph.explosions++
	ph.log.Warn("Part destroyed", "part", p.Name, "partId", p.ID, "cause", cause)
	if ph.session != nil && ph.session.StartingPart() == p {
		ph.emitter.FailureDestroyed(p,
			ph.session.Type().String(),
			ph.session.Phase().String(),
			fmt.Sprintf("%s destroyed: %s", p.Name, cause))
	}
	ph.emitter.Exploded(p, cause, ph.ascent.Altitude())
	ph.ascent.Remove(p)
}

// TriggerAbort kills the throttle and records the abort. Only the first
// abort counts.
func (ph *Physics) TriggerAbort(reason string) {
	if ph.aborted {
		return
	}
	ph.aborted = true
	ph.abortReason = reason
	ph.log.Warn("Abort triggered", "reason", reason)
	ph.ascent.SetThrottle(0)
	ph.emitter.Abort(true, reason)
}

// Aborted reports whether an abort fired during the flight.
func (ph *Physics) Aborted() bool {
	return ph.aborted
}

// AbortReason returns the reason of the first abort, empty if none fired.
func (ph *Physics) AbortReason() string {
	return ph.abortReason
}

// Explosions returns how many parts were destroyed.
func (ph *Physics) Explosions() int {
	return ph.explosions
}
