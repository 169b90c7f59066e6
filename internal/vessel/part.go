package vessel

import "fmt"

// Category classifies a part for failure selection and propagation.
type Category uint8

const (
	CategoryStructural Category = iota
	CategoryCommandPod
	CategoryEngine
	CategoryFuelTank
	CategoryRadialDecoupler
	CategoryControlSurface
	CategoryStrutOrFuelLine
	CategoryParachute
)

var categoryNames = map[Category]string{
	CategoryStructural:      "structural",
	CategoryCommandPod:      "commandPod",
	CategoryEngine:          "engine",
	CategoryFuelTank:        "fuelTank",
	CategoryRadialDecoupler: "radialDecoupler",
	CategoryControlSurface:  "controlSurface",
	CategoryStrutOrFuelLine: "strutOrFuelLine",
	CategoryParachute:       "parachute",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// ParseCategory converts a craft-file category string to a Category.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return CategoryStructural, fmt.Errorf("unknown part category %q", s)
}

// EngineModule is the performance state of one engine on a part.
type EngineModule struct {
	MaxThrust     float64
	CurrentThrust float64
	// ThrottlePct is the throttle limiter override in percent. 100 means
	// the engine follows the vessel throttle unmodified.
	ThrottlePct float64
	Ignited     bool
}

// Throttle returns the fraction of maximum thrust currently produced.
func (m *EngineModule) Throttle() float64 {
	if m.MaxThrust <= 0 {
		return 0
	}
	return m.CurrentThrust / m.MaxThrust
}

// Part is a node in a vessel's component tree. Topology fields are
// unexported: only the Vessel mutates them.
type Part struct {
	ID             uint16
	Name           string
	Category       Category
	Stage          int
	Temperature    float64
	MaxTemperature float64
	BreakingForce  float64
	DryMass        float64
	FuelMass       float64
	// ExplosiveFuel marks parts carrying combustible propellant,
	// whatever their category.
	ExplosiveFuel bool
	// Activated is set once the part's stage has fired.
	Activated bool
	// Engines holds the part's engine modules. Parts classified as
	// engine-capable carry exactly one.
	Engines []*EngineModule

	parent   *Part
	children []*Part
	attached bool
}

// Parent returns the parent part, nil for the root.
func (p *Part) Parent() *Part {
	return p.parent
}

// Children returns the part's children in attach order. The returned slice
// is shared; callers must not modify it.
func (p *Part) Children() []*Part {
	return p.children
}

// Attached reports whether the part is still connected to its vessel.
func (p *Part) Attached() bool {
	return p.attached
}

// Mass returns the part's current mass in tons.
func (p *Part) Mass() float64 {
	return p.DryMass + p.FuelMass
}

// AddTemperature raises the part's temperature by delta degrees.
func (p *Part) AddTemperature(delta float64) {
	p.Temperature += delta
}

// IgnitedEngine returns the part's single ignited engine module, nil if the
// part has no engines or none are lit.
func (p *Part) IgnitedEngine() *EngineModule {
	for _, m := range p.Engines {
		if m.Ignited {
			return m
		}
	}
	return nil
}
