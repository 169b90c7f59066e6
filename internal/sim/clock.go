package sim

import "github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/failure"

// Clock is the monotonic simulation clock. Time never comes from the wall:
// it only moves when the host loop calls Advance, one fixed step per tick.
type Clock struct {
	now float64
	dt  float64
}

var _ failure.Clock = (*Clock)(nil)

// NewClock creates a clock stepping at the given tick rate.
func NewClock(ticksPerSecond float64) *Clock {
	return &Clock{dt: 1 / ticksPerSecond}
}

// Now returns the current simulation time in seconds.
func (c *Clock) Now() float64 {
	return c.now
}

// Advance moves the clock forward one tick.
func (c *Clock) Advance() {
	c.now += c.dt
}

// Dt returns the length of one tick in seconds.
func (c *Clock) Dt() float64 {
	return c.dt
}
