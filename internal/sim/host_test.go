package sim

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/cache"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/config"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/dispatcher"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/failure"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/flight"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/logging"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/parser"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/worker"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// scriptRand plays back queued draws and falls back to conservative
// defaults: 0.9 fails every propagation roll, range minimum picks the
// first candidate.
type scriptRand struct {
	floats []float64
	ints   []int
}

func (r *scriptRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.9
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

// recordingBackend implements storage.Backend with in-memory slices.
type recordingBackend struct {
	mu sync.Mutex

	flights    []*core.Flight
	sites      []*core.LaunchSite
	results    []*core.FlightResult
	parts      []*core.PartInfo
	partStates []*core.PartState
	telemetry  []*core.TelemetryFrame
	failures   []*core.FailureEvent
	explosions []*core.ExplosionEvent
	aborts     []*core.AbortEvent
	events     []*core.GeneralEvent
}

func (b *recordingBackend) Init() error  { return nil }
func (b *recordingBackend) Close() error { return nil }

func (b *recordingBackend) StartFlight(f *core.Flight, s *core.LaunchSite) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.ID = uint(len(b.sites) + 1)
	f.ID = uint(len(b.flights) + 1)
	f.LaunchSiteID = s.ID
	b.flights = append(b.flights, f)
	b.sites = append(b.sites, s)
	return nil
}

func (b *recordingBackend) EndFlight(r *core.FlightResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, r)
	return nil
}

func (b *recordingBackend) RecordPart(p *core.PartInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parts = append(b.parts, p)
	return nil
}

func (b *recordingBackend) RecordPartState(s *core.PartState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.partStates = append(b.partStates, s)
	return nil
}

func (b *recordingBackend) RecordTelemetry(f *core.TelemetryFrame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.telemetry = append(b.telemetry, f)
	return nil
}

func (b *recordingBackend) RecordFailure(e *core.FailureEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, e)
	return nil
}

func (b *recordingBackend) RecordExplosion(e *core.ExplosionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.explosions = append(b.explosions, e)
	return nil
}

func (b *recordingBackend) RecordAbort(e *core.AbortEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aborts = append(b.aborts, e)
	return nil
}

func (b *recordingBackend) RecordGeneralEvent(e *core.GeneralEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

// count runs f under the backend lock and returns its result, so tests can
// poll sizes while buffered handlers are still draining.
func (b *recordingBackend) count(f func(b *recordingBackend) int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return f(b)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

// newPipeline wires a real dispatcher and worker against a recording
// backend, the same shape the launch binary assembles.
func newPipeline(t *testing.T) (*dispatcher.Dispatcher, *recordingBackend) {
	t.Helper()
	d, err := dispatcher.New(quietLogger{})
	if err != nil {
		t.Fatalf("dispatcher.New failed: %v", err)
	}
	backend := &recordingBackend{}
	manager := worker.NewManager(worker.Dependencies{
		PartCache:     cache.NewPartCache(),
		SiteCache:     cache.NewSiteCache(),
		FlightContext: flight.NewContext(),
		LogManager:    logging.NewSlogManager(),
		ParserService: parser.NewParser(discardLogger(), "test"),
	}, backend)
	manager.RegisterHandlers(d)
	return d, backend
}

func testOptions() Options {
	return Options{
		Sim: config.SimConfig{
			TicksPerSecond: 50,
			CaptureDelay:   1.0,
		},
		Failure: config.FailureConfig{
			InitialFailureProbability:    0,
			MaxFailureAltitudePercentage: 0.65,
			MinTimeBeforeFailure:         2,
			MaxTimeBeforeFailure:         120,
			PreFailureWarningTime:        5,
			DelayBetweenPartFailures:     0.2,
			PropagationProbability:       0.7,
			AutoAbort:                    false,
			AutoAbortDelay:               5,
			HighlightFailingPart:         true,
		},
		EngineVersion: "1.0.0-test",
		Tag:           "integration",
	}
}

func TestFlyNominalFlight(t *testing.T) {
	d, backend := newPipeline(t)
	host := NewHost(d, discardLogger(), testOptions())
	site, err := SiteByName("KSC")
	if err != nil {
		t.Fatalf("SiteByName failed: %v", err)
	}

	summary, err := host.Fly(testCraft(), site, 42)
	if err != nil {
		t.Fatalf("Fly failed: %v", err)
	}

	if summary.Outcome != core.OutcomeNominal {
		t.Errorf("expected nominal outcome, got %q", summary.Outcome)
	}
	if summary.Failure {
		t.Error("zero failure probability must not arm a failure")
	}
	if summary.Explosions != 0 {
		t.Errorf("expected no explosions, got %d", summary.Explosions)
	}
	if summary.PeakAltitude < site.AtmosphereDepth {
		t.Errorf("expected the craft to clear the atmosphere, peaked at %v", summary.PeakAltitude)
	}
	if summary.DurationSec <= 60 || summary.DurationSec >= maxFlightSeconds {
		t.Errorf("implausible flight duration %v", summary.DurationSec)
	}

	// flight lifecycle commands are synchronous, so these are already in
	if n := backend.count(func(b *recordingBackend) int { return len(b.flights) }); n != 1 {
		t.Fatalf("expected 1 recorded flight, got %d", n)
	}
	if n := backend.count(func(b *recordingBackend) int { return len(b.parts) }); n != 10 {
		t.Errorf("expected 10 registered parts, got %d", n)
	}
	if n := backend.count(func(b *recordingBackend) int { return len(b.results) }); n != 1 {
		t.Fatalf("expected 1 flight result, got %d", n)
	}

	backend.mu.Lock()
	f := backend.flights[0]
	s := backend.sites[0]
	r := backend.results[0]
	backend.mu.Unlock()

	if f.CraftName != "Kerbal X" || f.Seed != 42 || f.Tag != "integration" {
		t.Errorf("unexpected flight record: %+v", f)
	}
	if f.EngineVersion != "1.0.0-test" {
		t.Errorf("expected engine version from options, got %q", f.EngineVersion)
	}
	if _, ok := f.ConfigSnapshot["initialFailureProbability"]; !ok {
		t.Error("expected the failure options snapshot on the flight record")
	}
	if s.Name != "KSC Launch Pad" || s.Body != "Kerbin" {
		t.Errorf("unexpected site record: %+v", s)
	}
	if r.Outcome != core.OutcomeNominal {
		t.Errorf("expected nominal result, got %q", r.Outcome)
	}
	if len(r.GroundTrack) < 2 {
		t.Errorf("expected a recorded ground track, got %d points", len(r.GroundTrack))
	}

	// telemetry and part states stream through buffered handlers
	wantFrames := int(summary.EndFrame) + 1
	waitFor(t, func() bool {
		return backend.count(func(b *recordingBackend) int { return len(b.telemetry) }) == wantFrames
	}, "telemetry frames never drained")
	waitFor(t, func() bool {
		return backend.count(func(b *recordingBackend) int { return len(b.partStates) }) >= wantFrames*4
	}, "part states never drained")

	if n := backend.count(func(b *recordingBackend) int { return len(b.failures) }); n != 0 {
		t.Errorf("expected no failure records, got %d", n)
	}
	if n := backend.count(func(b *recordingBackend) int { return len(b.explosions) }); n != 0 {
		t.Errorf("expected no explosion records, got %d", n)
	}
}

func TestFlyAbortedFlight(t *testing.T) {
	d, backend := newPipeline(t)

	opts := testOptions()
	opts.Failure.InitialFailureProbability = 1
	opts.Failure.MinTimeBeforeFailure = 0
	opts.Failure.MaxTimeBeforeFailure = 0.5
	opts.Failure.PreFailureWarningTime = 0.2
	opts.Failure.DelayBetweenPartFailures = 0.02
	opts.Failure.PropagationProbability = 0.5
	opts.Failure.AutoAbort = true
	opts.Failure.AutoAbortDelay = 0.1
	// draws: failure roll, altitude threshold, over-thrust coin; every
	// later propagation roll fails on the 0.9 default, leaving only the
	// always-doomed fuel tank under the failing engine
	opts.NewRand = func(seed int64) failure.Rand {
		return &scriptRand{floats: []float64{0, 0, 0}}
	}

	host := NewHost(d, discardLogger(), opts)
	summary, err := host.Fly(testCraft(), testSite(), 7)
	if err != nil {
		t.Fatalf("Fly failed: %v", err)
	}

	if summary.Outcome != core.OutcomeAborted {
		t.Errorf("expected aborted outcome, got %q", summary.Outcome)
	}
	if !summary.Failure {
		t.Error("expected a failure session")
	}
	// the failing booster engine and the tank above it
	if summary.Explosions != 2 {
		t.Errorf("expected 2 explosions, got %d", summary.Explosions)
	}
	// the dead stack settles back and the flight closes out on the ground
	if summary.DurationSec < groundHoldSeconds || summary.DurationSec > groundHoldSeconds+1 {
		t.Errorf("expected the flight to end just past the ground hold, got %v", summary.DurationSec)
	}

	waitFor(t, func() bool {
		return backend.count(func(b *recordingBackend) int { return len(b.explosions) }) == 2 &&
			backend.count(func(b *recordingBackend) int { return len(b.aborts) }) == 1 &&
			backend.count(func(b *recordingBackend) int { return len(b.failures) }) == 2
	}, "failure records never drained")

	backend.mu.Lock()
	defer backend.mu.Unlock()

	abort := backend.aborts[0]
	if !abort.Automatic {
		t.Error("expected an automatic abort")
	}
	if !strings.Contains(abort.Reason, "LV-T30 Booster Engine destroyed: overheat") {
		t.Errorf("unexpected abort reason: %q", abort.Reason)
	}

	var warning, destroyed *core.FailureEvent
	for _, e := range backend.failures {
		switch e.Phase {
		case "Warning":
			warning = e
		case "DestructionPending":
			destroyed = e
		}
	}
	if warning == nil || warning.PartID != 6 || warning.FailureType != "engine" {
		t.Errorf("missing or wrong warning record: %+v", warning)
	}
	if destroyed == nil || destroyed.PartID != 6 {
		t.Errorf("missing or wrong destruction record: %+v", destroyed)
	}

	causes := map[uint16]string{}
	for _, e := range backend.explosions {
		causes[e.PartID] = e.Cause
	}
	if causes[6] != core.CauseOverheat {
		t.Errorf("expected the engine lost to overheat, got %q", causes[6])
	}
	if causes[5] != core.CauseCascade {
		t.Errorf("expected the tank lost to the cascade, got %q", causes[5])
	}

	if backend.results[0].Outcome != core.OutcomeAborted {
		t.Errorf("expected aborted result, got %q", backend.results[0].Outcome)
	}
}

func TestFlyRejectsBadCraft(t *testing.T) {
	d, backend := newPipeline(t)
	host := NewHost(d, discardLogger(), testOptions())

	craft := parser.CraftFile{
		Name: "Broken",
		Parts: []parser.CraftPart{
			{ID: 0, ParentID: -1, Name: "A", Category: "warpDrive"},
		},
	}
	if _, err := host.Fly(craft, testSite(), 1); err == nil {
		t.Fatal("expected an error for an unbuildable craft")
	}
	if n := backend.count(func(b *recordingBackend) int { return len(b.flights) }); n != 0 {
		t.Errorf("a rejected craft must not open a flight, got %d", n)
	}
}

func TestFlyAirlessSiteNeverFails(t *testing.T) {
	d, backend := newPipeline(t)

	opts := testOptions()
	opts.Failure.InitialFailureProbability = 1

	host := NewHost(d, discardLogger(), opts)
	site, err := SiteByName("Mun Flats")
	if err != nil {
		t.Fatalf("SiteByName failed: %v", err)
	}

	summary, err := host.Fly(testCraft(), site, 3)
	if err != nil {
		t.Fatalf("Fly failed: %v", err)
	}

	// nothing can fail without an atmosphere; the craft burns out and the
	// flight runs into the time limit
	if summary.Outcome != core.OutcomeNominal {
		t.Errorf("expected nominal outcome, got %q", summary.Outcome)
	}
	if summary.Explosions != 0 {
		t.Errorf("expected no explosions, got %d", summary.Explosions)
	}
	if summary.DurationSec < maxFlightSeconds {
		t.Errorf("expected the flight to run out the clock, got %v", summary.DurationSec)
	}

	if n := backend.count(func(b *recordingBackend) int { return len(b.failures) }); n != 0 {
		t.Errorf("expected no failure records on an airless body, got %d", n)
	}
	if n := backend.count(func(b *recordingBackend) int { return len(b.aborts) }); n != 0 {
		t.Errorf("expected no aborts, got %d", n)
	}
}
