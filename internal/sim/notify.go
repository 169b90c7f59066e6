package sim

import (
	"log/slog"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/failure"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/vessel"
)

// Notifier carries operator-facing failure warnings to the recorder. There
// is no cockpit here, so highlights and alarms reduce to state the host and
// tests can observe plus recorder events for the alarm edges.
type Notifier struct {
	emitter *Emitter
	log     *slog.Logger
	session session

	alarm       bool
	highlighted *vessel.Part
}

var _ failure.Notifier = (*Notifier)(nil)

func NewNotifier(emitter *Emitter, log *slog.Logger) *Notifier {
	return &Notifier{emitter: emitter, log: log}
}

// Bind attaches the failure session so warnings can name the failing part.
func (n *Notifier) Bind(s session) {
	n.session = s
}

// Warn surfaces a warning. With a bound session naming a target the warning
// is recorded against that part; otherwise it lands in the event log.
func (n *Notifier) Warn(msg string) {
	n.log.Warn("Failure warning", "message", msg)
	if n.session == nil || n.session.StartingPart() == nil {
		n.emitter.Event("warning", msg, nil)
		return
	}
	n.emitter.FailureWarning(n.session.StartingPart(),
		n.session.Type().String(),
		n.session.Phase().String(),
		msg)
}

// Highlight marks or unmarks a part as the one drawing attention.
func (n *Notifier) Highlight(p *vessel.Part, on bool) {
	if on {
		n.highlighted = p
		n.log.Debug("Highlighting part", "part", p.Name, "partId", p.ID)
		return
	}
	if n.highlighted == p {
		n.highlighted = nil
	}
}

// StartAlarm latches the master alarm on.
func (n *Notifier) StartAlarm() {
	if n.alarm {
		return
	}
	n.alarm = true
	n.log.Warn("Master alarm on")
	n.emitter.Event("alarm", "Master alarm on", nil)
}

// StopAlarm releases the master alarm.
func (n *Notifier) StopAlarm() {
	if !n.alarm {
		return
	}
	n.alarm = false
	n.log.Info("Master alarm off")
	n.emitter.Event("alarm", "Master alarm off", nil)
}

// Alarm reports whether the master alarm is latched.
func (n *Notifier) Alarm() bool {
	return n.alarm
}

// Highlighted returns the currently highlighted part, nil if none.
func (n *Notifier) Highlighted() *vessel.Part {
	return n.highlighted
}

// FlightRecorder is the failure engine's flight-data log sink: entries go
// to the structured log and into the recorded event stream.
type FlightRecorder struct {
	emitter *Emitter
	log     *slog.Logger
}

var _ failure.Recorder = (*FlightRecorder)(nil)

func NewFlightRecorder(emitter *Emitter, log *slog.Logger) *FlightRecorder {
	return &FlightRecorder{emitter: emitter, log: log}
}

// Record appends one free-text entry to the flight log.
func (r *FlightRecorder) Record(msg string) {
	r.log.Info("Flight log", "entry", msg)
	r.emitter.Event("flightLog", msg, nil)
}
