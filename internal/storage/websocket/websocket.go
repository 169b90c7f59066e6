package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/core"
	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams flight data over WebSocket to the flight review web server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	return &Backend{
		conn: newConnection(slog.Default()),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// sendEnvelopeAndWait marshals the payload and waits for a server ack.
func (b *Backend) sendEnvelopeAndWait(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, msgType, ackTimeout)
}

// StartFlight sends flight and launch site data and waits for server ack.
func (b *Backend) StartFlight(flight *core.Flight, site *core.LaunchSite) error {
	data, err := marshalEnvelope(streaming.TypeStartFlight, streaming.StartFlightPayload{Flight: flight, Site: site})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartFlight, ackTimeout)
}

// EndFlight sends the final flight result and waits for server ack.
func (b *Backend) EndFlight(result *core.FlightResult) error {
	err := b.sendEnvelopeAndWait(streaming.TypeEndFlight, result)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}

func (b *Backend) RecordPart(p *core.PartInfo) error {
	return b.sendEnvelope(streaming.TypeAddPart, p)
}

func (b *Backend) RecordPartState(s *core.PartState) error {
	return b.sendEnvelope(streaming.TypePartState, s)
}

func (b *Backend) RecordTelemetry(f *core.TelemetryFrame) error {
	return b.sendEnvelope(streaming.TypeTelemetry, f)
}

func (b *Backend) RecordFailure(e *core.FailureEvent) error {
	return b.sendEnvelope(streaming.TypeFailureEvent, e)
}

func (b *Backend) RecordExplosion(e *core.ExplosionEvent) error {
	return b.sendEnvelope(streaming.TypeExplosionEvent, e)
}

func (b *Backend) RecordAbort(e *core.AbortEvent) error {
	return b.sendEnvelope(streaming.TypeAbortEvent, e)
}

func (b *Backend) RecordGeneralEvent(e *core.GeneralEvent) error {
	return b.sendEnvelope(streaming.TypeGeneralEvent, e)
}
