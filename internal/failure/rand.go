package failure

import "math/rand"

// Rand is the uniform random source the engine draws from. Injected so
// tests can script every draw.
type Rand interface {
	// IntRange returns a uniform int in [min, max).
	IntRange(min, max int) int
	// Float64 returns a uniform float64 in [0, 1).
	Float64() float64
}

// Source adapts math/rand to the Rand contract.
type Source struct {
	r *rand.Rand
}

// NewSource returns a seeded Source.
func NewSource(seed int64) *Source {
	return &Source{r: rand.New(rand.NewSource(seed))}
}

func (s *Source) IntRange(min, max int) int {
	return min + s.r.Intn(max-min)
}

func (s *Source) Float64() float64 {
	return s.r.Float64()
}
