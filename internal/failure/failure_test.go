package failure

import (
	"strings"
	"testing"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/vessel"
)

// stubClock is a manually advanced simulation clock.
type stubClock struct {
	t float64
}

func (c *stubClock) Now() float64 { return c.t }

// fixedRand returns the same float on every draw and the range minimum for
// every int draw.
type fixedRand struct {
	f float64
}

func (r *fixedRand) IntRange(min, max int) int { return min }
func (r *fixedRand) Float64() float64          { return r.f }

// scriptRand plays back queued draws and falls back to defaults when the
// queue is empty.
type scriptRand struct {
	floats []float64
	ints   []int
}

func (r *scriptRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.5
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptRand) IntRange(min, max int) int {
	if len(r.ints) == 0 {
		return min
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v < min || v >= max {
		return min
	}
	return v
}

// stubVehicle serves fixed candidate pools and a settable altitude.
type stubVehicle struct {
	engines    []*vessel.Part
	decouplers []*vessel.Part
	surfaces   []*vessel.Part
	struts     []*vessel.Part
	altitude   float64
	detached   map[*vessel.Part]bool
}

func (v *stubVehicle) ActiveEngineParts() []*vessel.Part  { return v.engines }
func (v *stubVehicle) RadialDecouplers() []*vessel.Part   { return v.decouplers }
func (v *stubVehicle) ControlSurfaces() []*vessel.Part    { return v.surfaces }
func (v *stubVehicle) StrutsAndFuelLines() []*vessel.Part { return v.struts }
func (v *stubVehicle) Altitude() float64                  { return v.altitude }
func (v *stubVehicle) Contains(p *vessel.Part) bool       { return !v.detached[p] }

// recordingPhysics applies heat to the part (the engine reads temperature
// back for its destruction check) and records every other call.
type recordingPhysics struct {
	forces    []float64
	heats     []float64
	throttles []float64
	decouples []float64
	exploded  []string
	aborts    []string
}

func (p *recordingPhysics) ApplyForce(part *vessel.Part, magnitude float64) {
	p.forces = append(p.forces, magnitude)
}

func (p *recordingPhysics) AddHeat(part *vessel.Part, delta float64) {
	part.AddTemperature(delta)
	p.heats = append(p.heats, delta)
}

func (p *recordingPhysics) SetThrottlePct(part *vessel.Part, pct float64) {
	p.throttles = append(p.throttles, pct)
}

func (p *recordingPhysics) Decouple(part *vessel.Part, force float64) {
	p.decouples = append(p.decouples, force)
}

func (p *recordingPhysics) Explode(part *vessel.Part, cause string) {
	p.exploded = append(p.exploded, part.Name)
}

func (p *recordingPhysics) TriggerAbort(reason string) {
	p.aborts = append(p.aborts, reason)
}

type stubNotifier struct {
	warns       []string
	alarmStarts int
	alarmStops  int
}

func (n *stubNotifier) Warn(msg string)                     { n.warns = append(n.warns, msg) }
func (n *stubNotifier) Highlight(p *vessel.Part, on bool)   {}
func (n *stubNotifier) StartAlarm()                         { n.alarmStarts++ }
func (n *stubNotifier) StopAlarm()                          { n.alarmStops++ }

type stubRecorder struct {
	records []string
}

func (r *stubRecorder) Record(msg string) { r.records = append(r.records, msg) }

func enginePart(id uint16, name string, maxThrust, maxTemp float64) *vessel.Part {
	return &vessel.Part{
		ID:             id,
		Name:           name,
		Category:       vessel.CategoryEngine,
		MaxTemperature: maxTemp,
		BreakingForce:  200,
		Activated:      true,
		Engines: []*vessel.EngineModule{{
			MaxThrust:     maxThrust,
			CurrentThrust: maxThrust,
			ThrottlePct:   100,
			Ignited:       true,
		}},
	}
}

func structuralPart(id uint16, name string, cat vessel.Category) *vessel.Part {
	return &vessel.Part{
		ID:             id,
		Name:           name,
		Category:       cat,
		MaxTemperature: 1200,
		BreakingForce:  50,
	}
}

type harness struct {
	engine   *Engine
	vehicle  *stubVehicle
	physics  *recordingPhysics
	notifier *stubNotifier
	recorder *stubRecorder
	clock    *stubClock
	dt       float64
}

func newHarness(body Body, cfg Config, veh *stubVehicle, r Rand, tps float64) *harness {
	h := &harness{
		vehicle:  veh,
		physics:  &recordingPhysics{},
		notifier: &stubNotifier{},
		recorder: &stubRecorder{},
		clock:    &stubClock{},
		dt:       1 / tps,
	}
	h.engine = New(body, cfg, Deps{
		Vehicle:        veh,
		Physics:        h.physics,
		Notifier:       h.notifier,
		Recorder:       h.recorder,
		Rand:           r,
		Clock:          h.clock,
		TicksPerSecond: tps,
	})
	return h
}

// tick runs one poll and advances the clock one step, the way the host does.
func (h *harness) tick() bool {
	cont := h.engine.Tick()
	h.clock.t += h.dt
	return cont
}

var kerbinLike = Body{Name: "Kerbin", HasAtmosphere: true, AtmosphereDepth: 70000}

func baseConfig() Config {
	return Config{
		InitialFailureProbability:    1,
		MaxFailureAltitudePercentage: 0.5,
		MinTimeBeforeFailure:         0,
		MaxTimeBeforeFailure:         60,
		PreFailureWarningTime:        0,
		DelayBetweenPartFailures:     1,
		PropagationProbability:       0,
		PropagationChanceDecreases:   false,
		AutoAbort:                    false,
		AutoAbortDelay:               0,
		HighlightFailingPart:         true,
	}
}

func TestOccurs(t *testing.T) {
	if Occurs(&fixedRand{f: 0.4}, 0) {
		t.Error("zero probability must never occur")
	}
	if !Occurs(&fixedRand{f: 0.4}, 1) {
		t.Error("certain probability must always occur")
	}
	if Occurs(&fixedRand{f: 0.6}, 0.5) {
		t.Error("draw above probability should not occur")
	}
	if !Occurs(&fixedRand{f: 0.3}, 0.5) {
		t.Error("draw below probability should occur")
	}
}

func TestNoAtmosphereNeverFails(t *testing.T) {
	veh := &stubVehicle{engines: []*vessel.Part{enginePart(1, "engine", 100, 500)}}
	h := newHarness(Body{Name: "Mun", HasAtmosphere: false}, baseConfig(), veh, &fixedRand{}, 1)

	for i := 0; i < 5; i++ {
		if h.tick() {
			t.Fatalf("tick %d: engine on airless body must report done", i)
		}
	}
	if h.engine.Phase() != PhaseTerminated {
		t.Errorf("phase = %s, want Terminated", h.engine.Phase())
	}
}

func TestAltitudeThresholdRange(t *testing.T) {
	cfg := baseConfig()
	for seed := int64(1); seed <= 200; seed++ {
		e := New(kerbinLike, cfg, Deps{
			Rand:           NewSource(seed),
			Clock:          &stubClock{},
			TicksPerSecond: 1,
		})
		th := e.AltitudeThreshold()
		if th < 0 || th >= 35000 {
			t.Fatalf("seed %d: threshold %f outside [0, 35000)", seed, th)
		}
	}
}

func TestBelowThresholdKeepsWaiting(t *testing.T) {
	veh := &stubVehicle{
		engines:  []*vessel.Part{enginePart(1, "engine", 100, 500)},
		altitude: 0,
	}
	cfg := baseConfig()
	cfg.MinTimeBeforeFailure = 10
	cfg.MaxTimeBeforeFailure = 100
	h := newHarness(kerbinLike, cfg, veh, &fixedRand{f: 0.4}, 1)

	// threshold is 0.4 * 35000 = 14000; vehicle stays on the pad
	for i := 0; i < 50; i++ {
		if !h.tick() {
			t.Fatalf("tick %d: waiting session must keep running", i)
		}
	}
	if h.engine.StartingPart() != nil {
		t.Error("no session should start below the altitude threshold")
	}
	if h.engine.Phase() != PhaseWaitingForAltitude {
		t.Errorf("phase = %s, want WaitingForAltitude", h.engine.Phase())
	}
}

func TestMaxTimePassesGate(t *testing.T) {
	veh := &stubVehicle{
		engines:  []*vessel.Part{enginePart(1, "engine", 100, 500)},
		altitude: 0,
	}
	cfg := baseConfig()
	cfg.MinTimeBeforeFailure = 5
	cfg.MaxTimeBeforeFailure = 20
	cfg.PreFailureWarningTime = 100 // hold in Warning so the phase is visible
	h := newHarness(kerbinLike, cfg, veh, &fixedRand{f: 0.9}, 1)

	for h.clock.t < 20 {
		h.tick()
	}
	h.tick()
	if h.engine.Phase() != PhaseWarning {
		t.Errorf("phase = %s, want Warning once max time elapsed", h.engine.Phase())
	}
}

func TestEmptyPoolsRetries(t *testing.T) {
	veh := &stubVehicle{altitude: 50000}
	h := newHarness(kerbinLike, baseConfig(), veh, &fixedRand{}, 1)

	for i := 0; i < 10; i++ {
		if !h.tick() {
			t.Fatalf("tick %d: empty pools must keep the session alive", i)
		}
	}
	if h.engine.StartingPart() != nil {
		t.Error("startingPart must stay nil with no candidates")
	}
	if h.engine.Doomed() != nil {
		t.Error("doomed list must stay nil with no candidates")
	}
	if h.engine.Phase() != PhaseArmed {
		t.Errorf("phase = %s, want Armed", h.engine.Phase())
	}

	// candidates appearing later are picked up on the next tick
	veh.engines = []*vessel.Part{enginePart(1, "engine", 100, 500)}
	h.tick()
	if h.engine.StartingPart() == nil {
		t.Fatal("selector must pick up late candidates")
	}
}

func TestDetachmentAbortsSession(t *testing.T) {
	part := enginePart(1, "main engine", 100, 500)
	veh := &stubVehicle{
		engines:  []*vessel.Part{part},
		altitude: 50000,
		detached: map[*vessel.Part]bool{},
	}
	h := newHarness(kerbinLike, baseConfig(), veh, &fixedRand{f: 0.4}, 1)

	if !h.tick() {
		t.Fatal("first tick should keep running")
	}
	if h.engine.Phase() != PhaseDegrading {
		t.Fatalf("phase = %s, want Degrading", h.engine.Phase())
	}

	veh.detached[part] = true
	if h.tick() {
		t.Error("detached target must terminate the session")
	}
	if h.engine.Phase() != PhaseTerminated {
		t.Errorf("phase = %s, want Terminated", h.engine.Phase())
	}
	found := false
	for _, rec := range h.recorder.records {
		if strings.Contains(rec, "no longer attached") {
			found = true
		}
	}
	if !found {
		t.Errorf("flight log must mention the detachment, got %v", h.recorder.records)
	}
	if h.notifier.alarmStops == 0 {
		t.Error("alarm must stop when the session aborts")
	}
	if h.tick() {
		t.Error("terminated session must stay done")
	}
}

func TestPhasesNeverRegress(t *testing.T) {
	part := enginePart(1, "engine", 100, 500)
	veh := &stubVehicle{engines: []*vessel.Part{part}, altitude: 50000}
	cfg := baseConfig()
	cfg.PreFailureWarningTime = 3
	h := newHarness(kerbinLike, cfg, veh, &fixedRand{f: 0.4}, 10)

	last := h.engine.Phase()
	for i := 0; i < 500; i++ {
		cont := h.tick()
		if p := h.engine.Phase(); p < last {
			t.Fatalf("tick %d: phase regressed %s -> %s", i, last, p)
		} else {
			last = p
		}
		if !cont {
			break
		}
	}
	if h.engine.Phase() != PhaseTerminated {
		t.Fatalf("lifecycle did not run to termination, stuck at %s", h.engine.Phase())
	}
}

func TestAutoAbortDelayed(t *testing.T) {
	part := enginePart(1, "engine", 100, 500)
	veh := &stubVehicle{engines: []*vessel.Part{part}, altitude: 50000}
	cfg := baseConfig()
	cfg.AutoAbort = true
	cfg.AutoAbortDelay = 2
	h := newHarness(kerbinLike, cfg, veh, &fixedRand{f: 0.4}, 1)

	// over-thrust at full throttle heats maxTemp/20 per tick: destruction
	// condition is met after 20 qualifying ticks
	for i := 0; i < 20; i++ {
		h.tick()
	}
	if h.engine.Phase() != PhaseDestructionPending {
		t.Fatalf("phase = %s, want DestructionPending", h.engine.Phase())
	}
	if len(h.physics.aborts) != 0 {
		t.Fatal("abort must wait for the configured delay")
	}
	if len(h.physics.exploded) != 0 {
		t.Fatal("starting part must not explode before the abort fires")
	}

	h.tick()
	h.tick()
	if len(h.physics.aborts) != 1 {
		t.Fatalf("abort count = %d, want 1 after delay", len(h.physics.aborts))
	}
	if len(h.physics.exploded) != 1 || h.physics.exploded[0] != "engine" {
		t.Fatalf("starting part must explode with the abort, got %v", h.physics.exploded)
	}
	if h.engine.Phase() != PhaseExploding {
		t.Errorf("phase = %s, want Exploding", h.engine.Phase())
	}
}

func TestSchedulerCadence(t *testing.T) {
	// radial decoupler root with three children: structural destruction
	// dooms all three, then the schedule fires every fifth tick
	dec := structuralPart(1, "decoupler", vessel.CategoryRadialDecoupler)
	v := vessel.New("cascade test", dec)
	for i := uint16(2); i <= 4; i++ {
		if err := v.Attach(dec, structuralPart(i, "tank", vessel.CategoryFuelTank)); err != nil {
			t.Fatal(err)
		}
	}
	veh := &stubVehicle{decouplers: []*vessel.Part{dec}, altitude: 50000}
	cfg := baseConfig()
	cfg.DelayBetweenPartFailures = 0.1 // 5 ticks at 50 tps
	cfg.PropagationProbability = 1
	h := newHarness(kerbinLike, cfg, veh, &fixedRand{f: 0.4}, 50)

	// run degradation until the decoupler lets go
	ticks := 0
	for h.engine.Phase() < PhaseExploding {
		if !h.tick() {
			t.Fatal("session ended before reaching the explosion schedule")
		}
		if ticks++; ticks > 10000 {
			t.Fatal("degradation never destroyed the target")
		}
	}
	if len(h.physics.exploded) != 1 {
		t.Fatalf("only the starting part should be destroyed on entry, got %v", h.physics.exploded)
	}
	if got := len(h.engine.Doomed()); got != 3 {
		t.Fatalf("doomed count = %d, want 3", got)
	}

	// explosions land 5, 10 and 15 ticks after entering the schedule;
	// the fourth aligned tick runs past the list and terminates
	explodedAt := []int{}
	for i := 1; i <= 20; i++ {
		before := len(h.physics.exploded)
		cont := h.tick()
		if len(h.physics.exploded) > before {
			explodedAt = append(explodedAt, i)
		}
		if !cont {
			if i != 20 {
				t.Fatalf("session terminated at tick %d after entry, want 20", i)
			}
			break
		}
		if i == 20 {
			t.Fatal("session must terminate once the schedule is exhausted")
		}
	}
	want := []int{5, 10, 15}
	if len(explodedAt) != len(want) {
		t.Fatalf("explosions at %v, want %v", explodedAt, want)
	}
	for i := range want {
		if explodedAt[i] != want[i] {
			t.Fatalf("explosions at %v, want %v", explodedAt, want)
		}
	}
}
