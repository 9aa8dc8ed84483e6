package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstutools/fairing/internal/config"
	"github.com/sstutools/fairing/internal/worker"
	"github.com/sstutools/fairing/pkg/core"
)

var _ worker.SampleSink = (*Sink)(nil)

// viewer records every envelope and acks session messages when ack is set.
type viewer struct {
	mu       sync.Mutex
	messages []Envelope
	secrets  []string
	ack      bool
}

func (v *viewer) add(env Envelope) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, env)
}

func (v *viewer) all() []Envelope {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Envelope(nil), v.messages...)
}

func testViewer(t *testing.T, ack bool) (*httptest.Server, *viewer) {
	t.Helper()
	v := &viewer{ack: ack}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v.mu.Lock()
		v.secrets = append(v.secrets, r.URL.Query().Get("secret"))
		v.mu.Unlock()

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			v.add(env)

			if v.ack && (env.Type == TypeStartSession || env.Type == TypeEndSession) {
				data, _ := json.Marshal(AckMessage{Type: TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, v
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSink_StreamsSession(t *testing.T) {
	srv, v := testViewer(t, true)

	s := New(config.StreamConfig{Enabled: true, URL: wsURL(srv), Secret: "hunter2"}, "Kerbal X", nil)
	require.NoError(t, s.Connect(context.Background()))

	require.NoError(t, s.WriteSample(context.Background(), core.StateSample{
		Craft:    "Kerbal X",
		Part:     "f1",
		Kind:     "fairing",
		State:    "Deploying",
		Angle:    12.5,
		Shielded: []core.PartRef{"p2", "p3"},
	}))
	require.NoError(t, s.WriteSample(context.Background(), core.StateSample{Craft: "Kerbal X", Part: "f2"}))
	require.NoError(t, s.Close())

	msgs := v.all()
	require.Len(t, msgs, 4)
	assert.Equal(t, TypeStartSession, msgs[0].Type)
	assert.Equal(t, TypeSample, msgs[1].Type)
	assert.Equal(t, TypeSample, msgs[2].Type)
	assert.Equal(t, TypeEndSession, msgs[3].Type)

	var hello SessionPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &hello))
	assert.Equal(t, "Kerbal X", hello.Craft)

	var sample SamplePayload
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &sample))
	assert.Equal(t, "f1", sample.Part)
	assert.Equal(t, "Deploying", sample.State)
	assert.InDelta(t, 12.5, sample.Angle, 1e-9)
	assert.Equal(t, []string{"p2", "p3"}, sample.Shielded)

	v.mu.Lock()
	defer v.mu.Unlock()
	assert.Equal(t, []string{"hunter2"}, v.secrets)
}

func TestSink_Disabled(t *testing.T) {
	s := New(config.StreamConfig{Enabled: false}, "c", nil)
	assert.ErrorIs(t, s.Connect(context.Background()), ErrDisabled)
	assert.NoError(t, s.Close())
}

func TestSink_RejectsHTTPURL(t *testing.T) {
	s := New(config.StreamConfig{Enabled: true, URL: "http://localhost:5000/stream"}, "c", nil)
	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme")
}

func TestSink_ConnectFailsWithoutAck(t *testing.T) {
	srv, v := testViewer(t, false)

	s := New(config.StreamConfig{Enabled: true, URL: wsURL(srv)}, "c", nil)
	start := time.Now()
	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), TypeStartSession)
	assert.GreaterOrEqual(t, time.Since(start), ackTimeout)

	msgs := v.all()
	require.NotEmpty(t, msgs)
	assert.Equal(t, TypeStartSession, msgs[0].Type)
	v.mu.Lock()
	defer v.mu.Unlock()
	assert.Equal(t, []string{""}, v.secrets)
}

func TestSink_BacklogFull(t *testing.T) {
	s := New(config.StreamConfig{Enabled: true}, "c", nil)
	// never dialed, so nothing drains the backlog
	for range sendChSize {
		require.NoError(t, s.WriteSample(context.Background(), core.StateSample{Part: "f1"}))
	}
	assert.ErrorIs(t, s.WriteSample(context.Background(), core.StateSample{Part: "f1"}), ErrBacklogFull)
}

func TestWorkerFlushFeedsViewer(t *testing.T) {
	srv, v := testViewer(t, true)

	s := New(config.StreamConfig{Enabled: true, URL: wsURL(srv)}, "c", nil)
	require.NoError(t, s.Connect(context.Background()))

	m := worker.NewManager(worker.Dependencies{Sink: worker.Sinks{s}}, nil)
	m.Samples().Push(core.StateSample{Craft: "c", Part: "f1"})
	m.Samples().Push(core.StateSample{Craft: "c", Part: "f2"})
	n, err := m.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, s.Close())

	var parts []string
	for _, env := range v.all() {
		if env.Type != TypeSample {
			continue
		}
		var p SamplePayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		parts = append(parts, p.Part)
	}
	assert.Equal(t, []string{"f1", "f2"}, parts)
}
