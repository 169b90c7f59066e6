package streaming

import (
	"encoding/json"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartFlight    = "start_flight"
	TypeEndFlight      = "end_flight"
	TypeAddPart        = "add_part"
	TypePartState      = "part_state"
	TypeTelemetry      = "telemetry"
	TypeFailureEvent   = "failure_event"
	TypeExplosionEvent = "explosion_event"
	TypeAbortEvent     = "abort_event"
	TypeGeneralEvent   = "general_event"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartFlightPayload carries flight and launch site data.
type StartFlightPayload struct {
	Flight *core.Flight     `json:"flight"`
	Site   *core.LaunchSite `json:"site"`
}
