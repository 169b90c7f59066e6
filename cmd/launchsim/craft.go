package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/parser"
)

// stockCraft is the built-in two-stage Kerbal X layout flown when no craft
// file is configured: a pod and parachute on a core stack, with two radial
// boosters that drop at stage separation.
const stockCraft = `# Kerbal X, stock two-stage craft with radial boosters
["Kerbal X"]

[0, -1, "Mk1-3 Command Pod", "commandPod", 0, 1400, 0, 50, false]
[1, 0, "Mk16-XL Parachute", "parachute", 0, 1200, 0, 50, false]
[2, 0, "FL-T800 Fuel Tank", "fuelTank", 1, 2000, 0, 50, true]
[3, 2, "LV-T45 Swivel Engine", "engine", 1, 2000, 215, 200, false]
[4, 2, "TT-70 Radial Decoupler", "radialDecoupler", 2, 2000, 0, 250, false]
[5, 4, "FL-T800 Booster Tank", "fuelTank", 2, 2000, 0, 50, true]
[6, 5, "LV-T30 Booster Engine", "engine", 2, 2000, 215, 200, false]
[7, 2, "TT-70 Radial Decoupler", "radialDecoupler", 2, 2000, 0, 250, false]
[8, 7, "FL-T800 Booster Tank", "fuelTank", 2, 2000, 0, 50, true]
[9, 8, "LV-T30 Booster Engine", "engine", 2, 2000, 215, 200, false]
`

// loadCraft reads the craft layout from the given path, or falls back to the
// stock craft when no path is configured.
func loadCraft(p *parser.Parser, path string) (parser.CraftFile, error) {
	if path == "" {
		return p.ParseCraftFile(strings.NewReader(stockCraft))
	}

	f, err := os.Open(path)
	if err != nil {
		return parser.CraftFile{}, fmt.Errorf("error opening craft file: %w", err)
	}
	defer func() { _ = f.Close() }()

	craft, err := p.ParseCraftFile(f)
	if err != nil {
		return parser.CraftFile{}, fmt.Errorf("error parsing craft file %s: %w", path, err)
	}
	return craft, nil
}
