package sim

import (
	"math"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/failure"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/vessel"
)

// Kerbin-scale constants for the flight model.
const (
	surfaceGravity = 9.81     // m/s^2
	bodyRadius     = 600000.0 // m

	seaLevelDensity = 1.223 // kg/m^3
	// densityFloor is the density ratio at the top of the atmosphere; the
	// scale height follows from it and the site's atmosphere depth.
	densityFloor = 1e-6

	dragCoefficient = 0.2
	// dragScale folds the mass-proportional drag product down to an
	// acceleration in m/s^2. Sea-level terminal velocity lands near 100 m/s.
	dragScale = 0.008

	vacuumIsp = 320.0 // s

	// pitchOverTop is the altitude by which the pitch program has tipped
	// the full velocity vector downrange.
	pitchOverTop = 40000.0

	fuelEpsilon = 1e-9
)

// Ascent integrates a simplified vertical flight: thrust against gravity
// and drag, propellant flowing out of the current stage's tanks, staging on
// fuel exhaustion. Downrange drift follows a fixed pitch program and only
// feeds the recorded ground track, never the dynamics.
//
// Ascent embeds its vessel, so it satisfies the failure engine's vehicle
// interface directly: candidate pools come from the tree, altitude from the
// integrator. Stages count down; the highest stage number in the tree fires
// on the pad and stage 0 holds the payload. A stage's parts must form whole
// subtrees, the way boosters hang off their decouplers.
type Ascent struct {
	*vessel.Vessel

	atmosphereDepth float64
	padAltitude     float64

	met      float64
	altitude float64
	velocity float64
	drift    float64
	throttle float64
	stage    int
	impulse  float64
}

var _ failure.Vehicle = (*Ascent)(nil)

// NewAscent readies a craft for launch from the given site: the initial
// stage's parts activate and its engines ignite on the pad.
func NewAscent(craft *vessel.Vessel, site Site) *Ascent {
	a := &Ascent{
		Vessel:          craft,
		atmosphereDepth: site.AtmosphereDepth,
		padAltitude:     site.Elevation,
		altitude:        site.Elevation,
		throttle:        1.0,
		stage:           0,
	}
	for _, p := range craft.Parts() {
		if p.Stage > a.stage {
			a.stage = p.Stage
		}
	}
	a.fireStage(a.stage)
	return a
}

// Altitude returns the craft's altitude above sea level in meters.
func (a *Ascent) Altitude() float64 {
	return a.altitude
}

// Velocity returns the vertical velocity in m/s, negative when falling.
func (a *Ascent) Velocity() float64 {
	return a.velocity
}

// MET returns the mission elapsed time in seconds.
func (a *Ascent) MET() float64 {
	return a.met
}

// Stage returns the current stage number.
func (a *Ascent) Stage() int {
	return a.stage
}

// Throttle returns the commanded vessel throttle in [0, 1].
func (a *Ascent) Throttle() float64 {
	return a.throttle
}

// Downrange returns the accumulated downrange drift in meters.
func (a *Ascent) Downrange() float64 {
	return a.drift
}

// Mass returns the craft's current total mass in tons.
func (a *Ascent) Mass() float64 {
	var m float64
	for _, p := range a.Parts() {
		m += p.Mass()
	}
	return m
}

// SetThrottle commands the vessel throttle, clamped to [0, 1].
func (a *Ascent) SetThrottle(t float64) {
	a.throttle = math.Max(0, math.Min(1, t))
}

// AddImpulse queues an extra upward force in kilonewtons for the next step.
// Over-thrust failures push the craft through this.
func (a *Ascent) AddImpulse(force float64) {
	a.impulse += force
}

// Grounded reports whether the craft is sitting at pad level.
func (a *Ascent) Grounded() bool {
	return a.altitude <= a.padAltitude && a.velocity == 0
}

// Destroyed reports whether the craft's root part is gone.
func (a *Ascent) Destroyed() bool {
	return a.Root() == nil
}

// Step advances the flight one time slice. When the step exhausts the
// current stage's propellant it separates the spent stage and reports the
// detached subtree roots.
func (a *Ascent) Step(dt float64) (dropped []*vessel.Part, staged bool) {
	a.met += dt

	thrust := a.updateThrust()
	a.burnFuel(thrust, dt)
	if a.stage > 0 && a.stageFuel() <= 0 {
		dropped = a.nextStage()
		staged = true
	}

	mass := a.Mass()
	if mass <= 0 {
		// nothing left of the craft
		a.impulse = 0
		return dropped, staged
	}

	accel := (thrust+a.impulse)/mass - a.gravity() - a.dragAccel()
	a.impulse = 0

	if a.Grounded() && accel <= 0 {
		// not enough thrust to leave the pad
		return dropped, staged
	}

	a.velocity += accel * dt
	a.altitude += a.velocity * dt
	a.drift += a.velocity * a.driftFraction() * dt
	if a.altitude <= a.padAltitude && a.velocity < 0 {
		a.altitude = a.padAltitude
		a.velocity = 0
	}
	return dropped, staged
}

// updateThrust refreshes every engine module's output and returns the total
// thrust in kilonewtons. Ignited engines follow the vessel throttle scaled
// by their own limiter; a dry stage produces nothing.
func (a *Ascent) updateThrust() float64 {
	hasFuel := a.stageFuel() > 0
	var total float64
	for _, p := range a.Parts() {
		for _, m := range p.Engines {
			if !m.Ignited || !hasFuel {
				m.CurrentThrust = 0
				continue
			}
			m.CurrentThrust = m.MaxThrust * a.throttle * m.ThrottlePct / 100
			total += m.CurrentThrust
		}
	}
	return total
}

// burnFuel drains the current stage's tanks proportionally to their load.
func (a *Ascent) burnFuel(thrust, dt float64) {
	if thrust <= 0 {
		return
	}
	pool := a.stageFuel()
	if pool <= 0 {
		return
	}
	need := thrust / (vacuumIsp * surfaceGravity) * dt
	if need > pool {
		need = pool
	}
	frac := need / pool
	for _, p := range a.Parts() {
		if p.Stage != a.stage || p.FuelMass <= 0 {
			continue
		}
		p.FuelMass -= p.FuelMass * frac
		if p.FuelMass < fuelEpsilon {
			p.FuelMass = 0
		}
	}
}

// stageFuel returns the propellant left in the current stage's tanks.
func (a *Ascent) stageFuel() float64 {
	var fuel float64
	for _, p := range a.Parts() {
		if p.Stage == a.stage {
			fuel += p.FuelMass
		}
	}
	return fuel
}

// nextStage drops every part of the spent stage and fires the one below.
// Subtree roots detach in one piece, so boosters leave with their
// decouplers and stacked stages leave below their separator.
func (a *Ascent) nextStage() (dropped []*vessel.Part) {
	spent := a.stage
	for _, p := range a.Parts() {
		if p.Stage != spent {
			continue
		}
		for _, m := range p.Engines {
			m.Ignited = false
			m.CurrentThrust = 0
		}
	}
	for _, p := range a.Parts() {
		if p.Stage != spent || p == a.Root() {
			continue
		}
		if parent := p.Parent(); parent != nil && parent.Stage == spent {
			// leaves with its parent
			continue
		}
		dropped = append(dropped, p)
	}
	for _, p := range dropped {
		a.Remove(p)
	}
	a.stage = spent - 1
	a.fireStage(a.stage)
	return dropped
}

// fireStage activates the parts of the given stage and ignites its engines.
func (a *Ascent) fireStage(stage int) {
	for _, p := range a.Parts() {
		if p.Stage != stage {
			continue
		}
		p.Activated = true
		for _, m := range p.Engines {
			m.Ignited = true
		}
	}
}

// gravity returns the gravitational acceleration at the current altitude.
func (a *Ascent) gravity() float64 {
	r := bodyRadius / (bodyRadius + a.altitude)
	return surfaceGravity * r * r
}

// airDensity returns the atmospheric density at the current altitude. The
// profile is exponential and cut off at the atmosphere's depth, where it
// has decayed to the density floor.
func (a *Ascent) airDensity() float64 {
	if a.atmosphereDepth <= 0 || a.altitude >= a.atmosphereDepth {
		return 0
	}
	scaleHeight := a.atmosphereDepth / math.Log(1/densityFloor)
	return seaLevelDensity * math.Exp(-a.altitude/scaleHeight)
}

// dragAccel returns the deceleration from atmospheric drag, signed against
// the direction of motion.
func (a *Ascent) dragAccel() float64 {
	v := a.velocity
	return 0.5 * a.airDensity() * v * math.Abs(v) * dragCoefficient * dragScale
}

// driftFraction is the share of velocity the pitch program turns
// downrange: vertical off the pad, fully tipped over by pitchOverTop.
func (a *Ascent) driftFraction() float64 {
	f := a.altitude / pitchOverTop
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}
