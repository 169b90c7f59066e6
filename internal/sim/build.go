package sim

import (
	"fmt"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/parser"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/vessel"
)

// partDryMass holds default dry masses in tons. Craft files carry thermal
// and structural limits but no masses, so the builder assigns category
// defaults; engines gain additional mass with rated thrust.
var partDryMass = map[vessel.Category]float64{
	vessel.CategoryStructural:      0.10,
	vessel.CategoryCommandPod:      0.84,
	vessel.CategoryEngine:          0.50,
	vessel.CategoryFuelTank:        0.50,
	vessel.CategoryRadialDecoupler: 0.05,
	vessel.CategoryControlSurface:  0.04,
	vessel.CategoryStrutOrFuelLine: 0.05,
	vessel.CategoryParachute:       0.10,
}

const (
	// engineMassPerKN scales engine dry mass with rated thrust.
	engineMassPerKN = 0.004
	// fuelTankCapacity is the propellant load of a full tank in tons.
	fuelTankCapacity = 4.0
)

// BuildVessel converts a parsed craft layout into a vessel tree. Rows may
// reference parents defined later in the file: linking keeps passing over
// the remaining rows until nothing attaches anymore, so rows that never
// reach the root fail the build instead of silently dropping off.
func BuildVessel(craft parser.CraftFile) (*vessel.Vessel, error) {
	if len(craft.Parts) == 0 {
		return nil, fmt.Errorf("craft %q has no parts", craft.Name)
	}

	parts := make(map[uint16]*vessel.Part, len(craft.Parts))
	var root *vessel.Part
	for _, row := range craft.Parts {
		if _, ok := parts[row.ID]; ok {
			return nil, fmt.Errorf("craft %q: part id %d: %w", craft.Name, row.ID, vessel.ErrDuplicatePart)
		}
		p, err := newPart(row)
		if err != nil {
			return nil, fmt.Errorf("craft %q: part %d: %w", craft.Name, row.ID, err)
		}
		parts[row.ID] = p
		if row.ParentID < 0 {
			if root != nil {
				return nil, fmt.Errorf("craft %q: parts %d and %d both claim the root", craft.Name, root.ID, row.ID)
			}
			root = p
		}
	}
	if root == nil {
		return nil, fmt.Errorf("craft %q has no root part", craft.Name)
	}

	v := vessel.New(craft.Name, root)

	pending := make([]parser.CraftPart, 0, len(craft.Parts)-1)
	for _, row := range craft.Parts {
		if row.ParentID >= 0 {
			pending = append(pending, row)
		}
	}
	for len(pending) > 0 {
		var deferred []parser.CraftPart
		for _, row := range pending {
			parent, ok := parts[uint16(row.ParentID)]
			if !ok {
				return nil, fmt.Errorf("craft %q: part %d references unknown parent %d", craft.Name, row.ID, row.ParentID)
			}
			if !parent.Attached() {
				// parent itself still waiting for its own parent
				deferred = append(deferred, row)
				continue
			}
			if err := v.Attach(parent, parts[row.ID]); err != nil {
				return nil, fmt.Errorf("craft %q: %w", craft.Name, err)
			}
		}
		if len(deferred) == len(pending) {
			return nil, fmt.Errorf("craft %q: %d parts never reach the root", craft.Name, len(deferred))
		}
		pending = deferred
	}

	return v, nil
}

// newPart builds one vessel part from its craft file row. Engines get a
// single dormant engine module, tanks a full propellant load.
func newPart(row parser.CraftPart) (*vessel.Part, error) {
	cat, err := vessel.ParseCategory(row.Category)
	if err != nil {
		return nil, err
	}

	p := &vessel.Part{
		ID:             row.ID,
		Name:           row.Name,
		Category:       cat,
		Stage:          row.Stage,
		MaxTemperature: row.MaxTemp,
		BreakingForce:  row.BreakingForce,
		DryMass:        partDryMass[cat],
		ExplosiveFuel:  row.ExplosiveFuel,
	}

	switch cat {
	case vessel.CategoryEngine:
		p.DryMass += row.MaxThrust * engineMassPerKN
		p.Engines = []*vessel.EngineModule{{
			MaxThrust:   row.MaxThrust,
			ThrottlePct: 100,
		}}
	case vessel.CategoryFuelTank:
		p.FuelMass = fuelTankCapacity
	}

	return p, nil
}
