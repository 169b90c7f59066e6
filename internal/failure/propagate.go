package failure

import "github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/vessel"

// Propagate computes the parts doomed by the destruction of seed. Pure with
// respect to the part tree: it only reads topology and returns a freshly
// owned list in discovery order, seed excluded (the degradation path already
// destroyed it).
//
// Spread walks depth first from the seed over parent and child links. Each
// not-yet-doomed neighbor survives or falls on one uniform draw against the
// current probability; engine failures always take adjacent explosive fuel
// tanks with them. When decay is on, each level deeper multiplies the
// probability by the configured base. The doomed set doubles as the cycle
// guard, so no part is ever visited twice.
func Propagate(seed *vessel.Part, ft FailureType, baseProb float64, decays bool, r Rand) []*vessel.Part {
	doomed := map[*vessel.Part]bool{seed: true}
	var order []*vessel.Part

	var spread func(p *vessel.Part, prob float64)
	spread = func(p *vessel.Part, prob float64) {
		var candidates []*vessel.Part
		if parent := p.Parent(); parent != nil && !doomed[parent] {
			candidates = append(candidates, parent)
		}
		for _, c := range p.Children() {
			if !doomed[c] {
				candidates = append(candidates, c)
			}
		}
		for _, cand := range candidates {
			if doomed[cand] {
				// a sibling's recursion got here first
				continue
			}
			chance := prob
			if ft == FailureEngine && cand.ExplosiveFuel {
				chance = 1.0
			}
			if r.Float64() < chance {
				doomed[cand] = true
				order = append(order, cand)
				next := prob
				if decays {
					next = prob * baseProb
				}
				spread(cand, next)
			}
		}
	}
	spread(seed, baseProb)
	return order
}
