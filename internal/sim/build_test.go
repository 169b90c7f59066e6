package sim

import (
	"errors"
	"strings"
	"testing"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/parser"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/vessel"
)

// testCraft is a two-stage rocket with radial boosters: a pod and parachute
// on top, a core tank and engine as stage 1, and two booster stacks hanging
// off radial decouplers as stage 2.
func testCraft() parser.CraftFile {
	return parser.CraftFile{
		Name: "Kerbal X",
		Parts: []parser.CraftPart{
			{ID: 0, ParentID: -1, Name: "Mk1-3 Command Pod", Category: "commandPod", Stage: 0, MaxTemp: 1400, BreakingForce: 50},
			{ID: 1, ParentID: 0, Name: "Mk16-XL Parachute", Category: "parachute", Stage: 0, MaxTemp: 1200, BreakingForce: 50},
			{ID: 2, ParentID: 0, Name: "FL-T800 Fuel Tank", Category: "fuelTank", Stage: 1, MaxTemp: 2000, BreakingForce: 50, ExplosiveFuel: true},
			{ID: 3, ParentID: 2, Name: "LV-T45 Swivel Engine", Category: "engine", Stage: 1, MaxTemp: 2000, MaxThrust: 215, BreakingForce: 200},
			{ID: 4, ParentID: 2, Name: "TT-70 Radial Decoupler", Category: "radialDecoupler", Stage: 2, MaxTemp: 2000, BreakingForce: 250},
			{ID: 5, ParentID: 4, Name: "FL-T800 Booster Tank", Category: "fuelTank", Stage: 2, MaxTemp: 2000, BreakingForce: 50, ExplosiveFuel: true},
			{ID: 6, ParentID: 5, Name: "LV-T30 Booster Engine", Category: "engine", Stage: 2, MaxTemp: 2000, MaxThrust: 215, BreakingForce: 200},
			{ID: 7, ParentID: 2, Name: "TT-70 Radial Decoupler", Category: "radialDecoupler", Stage: 2, MaxTemp: 2000, BreakingForce: 250},
			{ID: 8, ParentID: 7, Name: "FL-T800 Booster Tank", Category: "fuelTank", Stage: 2, MaxTemp: 2000, BreakingForce: 50, ExplosiveFuel: true},
			{ID: 9, ParentID: 8, Name: "LV-T30 Booster Engine", Category: "engine", Stage: 2, MaxTemp: 2000, MaxThrust: 215, BreakingForce: 200},
		},
	}
}

func TestBuildVessel(t *testing.T) {
	v, err := BuildVessel(testCraft())
	if err != nil {
		t.Fatalf("BuildVessel failed: %v", err)
	}

	if v.Name != "Kerbal X" {
		t.Errorf("expected vessel name 'Kerbal X', got %q", v.Name)
	}
	if v.PartCount() != 10 {
		t.Errorf("expected 10 parts, got %d", v.PartCount())
	}
	if v.Root() == nil || v.Root().ID != 0 {
		t.Fatalf("expected part 0 as root, got %+v", v.Root())
	}

	engine, ok := v.ByID(3)
	if !ok {
		t.Fatal("part 3 not indexed")
	}
	if engine.Parent() == nil || engine.Parent().ID != 2 {
		t.Errorf("expected part 3 under part 2, got %+v", engine.Parent())
	}
}

func TestBuildVesselForwardParentReference(t *testing.T) {
	// Child rows before their parent rows must still link up.
	craft := parser.CraftFile{
		Name: "Reversed",
		Parts: []parser.CraftPart{
			{ID: 2, ParentID: 1, Name: "Engine", Category: "engine", Stage: 0, MaxThrust: 100},
			{ID: 1, ParentID: 0, Name: "Tank", Category: "fuelTank", Stage: 0},
			{ID: 0, ParentID: -1, Name: "Pod", Category: "commandPod", Stage: 0},
		},
	}
	v, err := BuildVessel(craft)
	if err != nil {
		t.Fatalf("BuildVessel failed on forward references: %v", err)
	}
	if v.PartCount() != 3 {
		t.Errorf("expected 3 parts, got %d", v.PartCount())
	}
	engine, _ := v.ByID(2)
	if engine.Parent() == nil || engine.Parent().ID != 1 {
		t.Errorf("expected part 2 under part 1, got %+v", engine.Parent())
	}
}

func TestBuildVesselEngineAndTankDefaults(t *testing.T) {
	v, err := BuildVessel(testCraft())
	if err != nil {
		t.Fatalf("BuildVessel failed: %v", err)
	}

	engine, _ := v.ByID(3)
	if len(engine.Engines) != 1 {
		t.Fatalf("expected one engine module, got %d", len(engine.Engines))
	}
	m := engine.Engines[0]
	if m.MaxThrust != 215 {
		t.Errorf("expected max thrust 215, got %v", m.MaxThrust)
	}
	if m.ThrottlePct != 100 {
		t.Errorf("expected throttle limiter at 100, got %v", m.ThrottlePct)
	}
	if m.Ignited {
		t.Error("engine must not be ignited before launch")
	}
	wantMass := partDryMass[vessel.CategoryEngine] + 215*engineMassPerKN
	if engine.DryMass != wantMass {
		t.Errorf("expected engine dry mass %v, got %v", wantMass, engine.DryMass)
	}

	tank, _ := v.ByID(2)
	if tank.FuelMass != fuelTankCapacity {
		t.Errorf("expected full tank %v, got %v", fuelTankCapacity, tank.FuelMass)
	}
	if len(tank.Engines) != 0 {
		t.Errorf("tank must carry no engine modules, got %d", len(tank.Engines))
	}
}

func TestBuildVesselErrors(t *testing.T) {
	tests := []struct {
		name    string
		craft   parser.CraftFile
		wantErr string
	}{
		{
			name:    "no parts",
			craft:   parser.CraftFile{Name: "Empty"},
			wantErr: "has no parts",
		},
		{
			name: "no root",
			craft: parser.CraftFile{
				Name: "Orphans",
				Parts: []parser.CraftPart{
					{ID: 0, ParentID: 1, Name: "A", Category: "structural"},
					{ID: 1, ParentID: 0, Name: "B", Category: "structural"},
				},
			},
			wantErr: "has no root part",
		},
		{
			name: "two roots",
			craft: parser.CraftFile{
				Name: "Twins",
				Parts: []parser.CraftPart{
					{ID: 0, ParentID: -1, Name: "A", Category: "commandPod"},
					{ID: 1, ParentID: -1, Name: "B", Category: "commandPod"},
				},
			},
			wantErr: "both claim the root",
		},
		{
			name: "unknown parent",
			craft: parser.CraftFile{
				Name: "Dangling",
				Parts: []parser.CraftPart{
					{ID: 0, ParentID: -1, Name: "A", Category: "commandPod"},
					{ID: 1, ParentID: 9, Name: "B", Category: "structural"},
				},
			},
			wantErr: "unknown parent 9",
		},
		{
			name: "unreachable cycle",
			craft: parser.CraftFile{
				Name: "Loop",
				Parts: []parser.CraftPart{
					{ID: 0, ParentID: -1, Name: "A", Category: "commandPod"},
					{ID: 1, ParentID: 2, Name: "B", Category: "structural"},
					{ID: 2, ParentID: 1, Name: "C", Category: "structural"},
				},
			},
			wantErr: "never reach the root",
		},
		{
			name: "bad category",
			craft: parser.CraftFile{
				Name: "Odd",
				Parts: []parser.CraftPart{
					{ID: 0, ParentID: -1, Name: "A", Category: "warpDrive"},
				},
			},
			wantErr: "unknown part category",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildVessel(tc.craft)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestBuildVesselDuplicateID(t *testing.T) {
	craft := parser.CraftFile{
		Name: "Clones",
		Parts: []parser.CraftPart{
			{ID: 0, ParentID: -1, Name: "A", Category: "commandPod"},
			{ID: 1, ParentID: 0, Name: "B", Category: "structural"},
			{ID: 1, ParentID: 0, Name: "C", Category: "structural"},
		},
	}
	_, err := BuildVessel(craft)
	if !errors.Is(err, vessel.ErrDuplicatePart) {
		t.Fatalf("expected ErrDuplicatePart, got %v", err)
	}
}
