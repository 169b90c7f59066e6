// Package sim is the launch host: it builds a craft from its layout file,
// integrates a simplified ascent through the atmosphere, polls the failure
// engine once per tick and feeds everything that happens to the recorder
// pipeline as dispatcher commands. The loop owns all time: the failure
// engine and the capture cadence both run off the host's fixed-step clock,
// never the wall clock.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/config"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/dispatcher"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/failure"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/parser"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/vessel"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

const (
	// maxFlightSeconds caps a flight that neither clears the atmosphere
	// nor comes back down.
	maxFlightSeconds = 600.0
	// groundHoldSeconds keeps the pad phase from reading as a landing.
	groundHoldSeconds = 10.0
)

// Options configure a host for a batch of flights.
type Options struct {
	Sim     config.SimConfig
	Failure config.FailureConfig

	EngineVersion string
	Tag           string

	// NewRand builds the randomness source for a flight from its seed.
	// Nil means the engine's default seeded source.
	NewRand func(seed int64) failure.Rand
}

// Host flies craft and records the flights through a dispatcher.
type Host struct {
	dispatcher *dispatcher.Dispatcher
	log        *slog.Logger
	opts       Options
}

func NewHost(d *dispatcher.Dispatcher, log *slog.Logger, opts Options) *Host {
	return &Host{dispatcher: d, log: log, opts: opts}
}

// Summary is what the caller learns about a finished flight.
type Summary struct {
	Outcome      string
	DurationSec  float64
	EndFrame     uint
	PeakAltitude float64
	Explosions   int
	// Failure reports whether a failure session ran this flight.
	Failure bool
}

// failureConfig maps the loaded failure options onto the engine's config.
func failureConfig(c config.FailureConfig) failure.Config {
	return failure.Config{
		InitialFailureProbability:    c.InitialFailureProbability,
		MaxFailureAltitudePercentage: c.MaxFailureAltitudePercentage,
		MinTimeBeforeFailure:         c.MinTimeBeforeFailure,
		MaxTimeBeforeFailure:         c.MaxTimeBeforeFailure,
		PreFailureWarningTime:        c.PreFailureWarningTime,
		DelayBetweenPartFailures:     c.DelayBetweenPartFailures,
		PropagationProbability:       c.PropagationProbability,
		PropagationChanceDecreases:   c.PropagationChanceDecreases,
		AutoAbort:                    c.AutoAbort,
		AutoAbortDelay:               c.AutoAbortDelay,
		HighlightFailingPart:         c.HighlightFailingPart,
	}
}

// Fly runs one flight of the given craft from the given site and blocks
// until it ends. The seed fixes the whole flight: same craft, site, seed
// and options replay the same ascent.
func (h *Host) Fly(craft parser.CraftFile, site Site, seed int64) (Summary, error) {
	tps := h.opts.Sim.TicksPerSecond
	if tps <= 0 {
		return Summary{}, fmt.Errorf("ticks per second must be positive, got %v", tps)
	}
	captureDelay := h.opts.Sim.CaptureDelay
	if captureDelay <= 0 {
		return Summary{}, fmt.Errorf("capture delay must be positive, got %v", captureDelay)
	}

	craftVessel, err := BuildVessel(craft)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to build vessel: %w", err)
	}

	clock := NewClock(tps)
	ascent := NewAscent(craftVessel, site)

	var frame uint
	emitter := NewEmitter(h.dispatcher, h.log, func() uint { return frame })
	physics := NewPhysics(ascent, emitter, h.log)
	notifier := NewNotifier(emitter, h.log)
	recorder := NewFlightRecorder(emitter, h.log)

	newRand := h.opts.NewRand
	if newRand == nil {
		newRand = func(seed int64) failure.Rand { return failure.NewSource(seed) }
	}
	source := newRand(seed)

	h.log.Info("Flight starting",
		"craft", craft.Name,
		"site", site.Name,
		"seed", seed,
		"parts", ascent.PartCount())

	emitter.FlightNew(craft.Name, site, h.opts.Tag, seed, captureDelay, h.opts.EngineVersion, h.opts.Failure)
	for _, p := range ascent.Parts() {
		emitter.PartNew(p)
	}

	var eng *failure.Engine
	if failure.Occurs(source, h.opts.Failure.InitialFailureProbability) {
		eng = failure.New(site.BodySpec(), failureConfig(h.opts.Failure), failure.Deps{
			Vehicle:        ascent,
			Physics:        physics,
			Notifier:       notifier,
			Recorder:       recorder,
			Rand:           source,
			Clock:          clock,
			TicksPerSecond: tps,
		})
		physics.Bind(eng)
		notifier.Bind(eng)
		h.log.Info("Failure armed for this flight",
			"altitudeThreshold", eng.AltitudeThreshold())
	} else {
		h.log.Info("No failure this flight")
	}

	captureEvery := int(math.Round(captureDelay * tps))
	if captureEvery < 1 {
		captureEvery = 1
	}

	var track []core.Position3D
	capture := func() {
		track = append(track, core.Position3D{X: ascent.Downrange(), Z: ascent.Altitude()})
		doomed := map[*vessel.Part]bool{}
		if eng != nil {
			for _, p := range eng.Doomed() {
				doomed[p] = true
			}
		}
		emitter.Telemetry(ascent.MET(), ascent.Altitude(), ascent.Velocity(),
			ascent.Throttle(), ascent.Mass(), ascent.Stage(), ascent.Downrange())
		for _, p := range ascent.Parts() {
			emitter.PartState(p, doomed[p])
		}
	}
	capture()

	peak := ascent.Altitude()
	engineActive := eng != nil
	var endReason string
	for tick := 1; ; tick++ {
		clock.Advance()
		dropped, staged := ascent.Step(clock.Dt())
		if staged {
			names := make([]string, len(dropped))
			for i, p := range dropped {
				names[i] = p.Name
			}
			h.log.Info("Stage separation",
				"stage", ascent.Stage(),
				"dropped", strings.Join(names, ", "))
			emitter.Event("staging",
				fmt.Sprintf("Stage separation, dropped %s", strings.Join(names, ", ")),
				map[string]any{"stage": ascent.Stage()})
		}
		if engineActive && !eng.Tick() {
			engineActive = false
		}
		if a := ascent.Altitude(); a > peak {
			peak = a
		}
		if tick%captureEvery == 0 {
			frame++
			capture()
		}
		if reason, over := h.flightOver(ascent, site); over {
			endReason = reason
			break
		}
	}

	// A failure session can outlive the flight, leaving the alarm latched.
	notifier.StopAlarm()
	recorder.Record("Flight over: " + endReason)
	frame++
	capture()

	outcome := core.OutcomeNominal
	switch {
	case physics.Aborted():
		outcome = core.OutcomeAborted
	case physics.Explosions() > 0 || ascent.Destroyed():
		outcome = core.OutcomeFailed
	}
	emitter.FlightEnd(outcome, ascent.MET(), track)

	h.log.Info("Flight complete",
		"outcome", outcome,
		"reason", endReason,
		"duration", ascent.MET(),
		"peakAltitude", peak,
		"explosions", physics.Explosions())

	return Summary{
		Outcome:      outcome,
		DurationSec:  ascent.MET(),
		EndFrame:     frame,
		PeakAltitude: peak,
		Explosions:   physics.Explosions(),
		Failure:      eng != nil,
	}, nil
}

// flightOver decides whether the flight has reached an end state.
func (h *Host) flightOver(a *Ascent, site Site) (string, bool) {
	switch {
	case a.Destroyed():
		return "vehicle destroyed", true
	case site.AtmosphereDepth > 0 && a.Altitude() >= site.AtmosphereDepth:
		return "atmosphere cleared", true
	case a.MET() > groundHoldSeconds && a.Grounded():
		return "back on the ground", true
	case a.MET() >= maxFlightSeconds:
		return "flight time limit reached", true
	}
	return "", false
}
