// Package stream pushes fairing telemetry to a live viewer over a WebSocket.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sstutools/fairing/internal/config"
	"github.com/sstutools/fairing/pkg/core"
)

// Message types of the viewer protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeSample       = "fairing_sample"
	TypeAck          = "ack"
)

var (
	// ErrDisabled is returned by Connect when streaming is switched off.
	ErrDisabled = errors.New("viewer stream disabled")
	// ErrBacklogFull is returned when the viewer falls too far behind.
	ErrBacklogFull = errors.New("viewer stream backlog full")
)

// Envelope wraps every message sent to the viewer.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the viewer's reply to session messages.
type AckMessage struct {
	Type string `json:"type"`
	For  string `json:"for"`
}

// SessionPayload opens a session for one craft.
type SessionPayload struct {
	Craft     string    `json:"craft"`
	StartedAt time.Time `json:"startedAt"`
}

// SamplePayload is the wire form of core.StateSample.
type SamplePayload struct {
	Time     time.Time `json:"time"`
	Craft    string    `json:"craft"`
	Part     string    `json:"part"`
	Kind     string    `json:"kind"`
	State    string    `json:"state"`
	Angle    float64   `json:"angle"`
	Progress float64   `json:"progress"`
	Height   float64   `json:"height"`
	Mass     float64   `json:"mass"`
	Cost     float64   `json:"cost"`
	Bands    int       `json:"bands"`
	Shielded []string  `json:"shielded,omitempty"`
}

// NewSamplePayload converts a telemetry sample.
func NewSamplePayload(s core.StateSample) SamplePayload {
	p := SamplePayload{
		Time:     s.Time,
		Craft:    s.Craft,
		Part:     string(s.Part),
		Kind:     s.Kind,
		State:    s.State,
		Angle:    s.Angle,
		Progress: s.Progress,
		Height:   s.Height,
		Mass:     s.Mass,
		Cost:     s.Cost,
		Bands:    s.Bands,
	}
	for _, ref := range s.Shielded {
		p.Shielded = append(p.Shielded, string(ref))
	}
	return p
}

// Sink streams samples to the viewer. Samples are fire-and-forget; only the
// session start and end wait for an ack.
type Sink struct {
	cfg   config.StreamConfig
	craft string
	conn  *connection
}

// New creates a sink for craft. Nothing is dialed until Connect.
func New(cfg config.StreamConfig, craft string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		cfg:   cfg,
		craft: craft,
		conn:  newConnection(logger.With("component", "stream")),
	}
}

// Connect dials the viewer and opens the session.
func (s *Sink) Connect(ctx context.Context) error {
	if !s.cfg.Enabled {
		return ErrDisabled
	}
	if err := s.conn.dial(ctx, s.cfg.URL, s.cfg.Secret); err != nil {
		return err
	}

	hello, err := marshalEnvelope(TypeStartSession, SessionPayload{Craft: s.craft, StartedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	s.conn.mu.Lock()
	s.conn.hello = hello
	s.conn.mu.Unlock()

	if err := s.conn.sendAndWait(hello, TypeStartSession, ackTimeout); err != nil {
		_ = s.conn.close()
		return err
	}
	return nil
}

// WriteSample queues one sample for the viewer.
func (s *Sink) WriteSample(_ context.Context, sample core.StateSample) error {
	data, err := marshalEnvelope(TypeSample, NewSamplePayload(sample))
	if err != nil {
		return err
	}
	if !s.conn.send(data) {
		return ErrBacklogFull
	}
	return nil
}

// Close ends the session and disconnects. A missing end ack is returned
// but the socket is closed regardless.
func (s *Sink) Close() error {
	s.conn.mu.Lock()
	live := s.conn.conn != nil && !s.conn.closed
	s.conn.mu.Unlock()

	var ackErr error
	if live {
		data, err := marshalEnvelope(TypeEndSession, SessionPayload{Craft: s.craft})
		if err == nil {
			ackErr = s.conn.sendAndWait(data, TypeEndSession, ackTimeout)
		}
	}
	return errors.Join(ackErr, s.conn.close())
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
