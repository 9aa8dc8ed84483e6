package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sstutools/fairing/internal/dispatcher"
	"github.com/sstutools/fairing/internal/queue"
	"github.com/sstutools/fairing/internal/storage"
	"github.com/sstutools/fairing/pkg/core"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct{}

func (mockLogger) Debug(string, ...any) {}
func (mockLogger) Info(string, ...any)  {}
func (mockLogger) Error(string, ...any) {}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu       sync.Mutex
	samples  []core.StateSample
	failPart core.PartRef
	duration time.Duration
}

var _ storage.Backend = (*mockBackend)(nil)

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }
func (b *mockBackend) SaveRecord(*core.PartRecord) error {
	return nil
}
func (b *mockBackend) LoadRecord(string, core.PartRef) (*core.PartRecord, error) {
	return nil, storage.ErrNotFound
}
func (b *mockBackend) RecordSample(s *core.StateSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.Part == b.failPart {
		return errors.New("write failed")
	}
	b.samples = append(b.samples, *s)
	return nil
}
func (b *mockBackend) GetLastDBWriteDuration() time.Duration { return b.duration }

func (b *mockBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

type mockSink struct {
	mu      sync.Mutex
	written []core.StateSample
	err     error
}

func (s *mockSink) WriteSample(_ context.Context, v core.StateSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, v)
	return s.err
}

func push(q *queue.Queue[core.StateSample], parts ...core.PartRef) {
	for i, p := range parts {
		q.Push(core.StateSample{Craft: "c", Part: p, Angle: float64(i)})
	}
}

func TestFlush_DrainsInBatches(t *testing.T) {
	backend := &mockBackend{}
	sink := &mockSink{}
	m := NewManager(Dependencies{Sink: sink, BatchSize: 2}, backend)
	push(m.Samples(), "a", "b", "c", "d", "e")

	n, err := m.Flush(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 flushed, got %d", n)
	}
	if backend.count() != 5 || len(sink.written) != 5 {
		t.Errorf("expected 5 in backend and sink, got %d and %d", backend.count(), len(sink.written))
	}
	if backend.samples[4].Part != "e" {
		t.Errorf("expected order preserved, got %+v", backend.samples)
	}
	if !m.Samples().Empty() {
		t.Error("expected empty queue")
	}
	if m.Flushed() != 5 {
		t.Errorf("expected total 5, got %d", m.Flushed())
	}
}

func TestFlush_BackendErrorSkipsSink(t *testing.T) {
	backend := &mockBackend{failPart: "bad"}
	sink := &mockSink{}
	m := NewManager(Dependencies{Sink: sink}, backend)
	push(m.Samples(), "a", "bad", "c")

	n, err := m.Flush(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 2 {
		t.Errorf("expected 2 flushed, got %d", n)
	}
	if len(sink.written) != 2 {
		t.Errorf("expected 2 sink writes, got %d", len(sink.written))
	}
}

func TestFlush_SinkErrorIgnored(t *testing.T) {
	backend := &mockBackend{}
	m := NewManager(Dependencies{Sink: &mockSink{err: errors.New("offline")}}, backend)
	push(m.Samples(), "a")

	n, err := m.Flush(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || backend.count() != 1 {
		t.Errorf("expected sample stored despite sink error")
	}
}

func TestFlush_NoBackend(t *testing.T) {
	sink := &mockSink{}
	m := NewManager(Dependencies{Sink: sink}, nil)
	push(m.Samples(), "a", "b")

	if n, _ := m.Flush(context.Background()); n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
	if m.GetLastDBWriteDuration() != 0 {
		t.Error("expected zero duration without backend")
	}
}

func TestRun_FlushesUntilCancelled(t *testing.T) {
	backend := &mockBackend{}
	m := NewManager(Dependencies{}, backend)
	push(m.Samples(), "a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for backend.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if backend.count() != 1 {
		t.Fatal("expected periodic flush")
	}

	push(m.Samples(), "b")
	cancel()
	<-done
	if backend.count() != 2 {
		t.Errorf("expected final flush on cancel, got %d", backend.count())
	}
}

func TestRegisterHandlers_Flush(t *testing.T) {
	d, err := dispatcher.New(mockLogger{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(d.Close)

	backend := &mockBackend{}
	m := NewManager(Dependencies{}, backend)
	m.RegisterHandlers(d)
	push(m.Samples(), "a", "b")

	result, err := d.Dispatch(dispatcher.Event{Command: ":TELEMETRY:FLUSH:"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "queued" {
		t.Errorf("expected flush to be queued, got %v", result)
	}

	// Close waits for the buffered flush to run
	d.Close()
	if m.Flushed() != 2 {
		t.Errorf("expected 2 flushed samples, got %d", m.Flushed())
	}
	if m.Samples().Len() != 0 {
		t.Errorf("expected empty queue, got %d", m.Samples().Len())
	}
}

func TestSinks_WritesAllAndJoinsErrors(t *testing.T) {
	failing := &mockSink{err: errors.New("viewer gone")}
	ok := &mockSink{}
	sinks := Sinks{failing, ok}

	err := sinks.WriteSample(context.Background(), core.StateSample{Part: "f1"})
	if err == nil || err.Error() != "viewer gone" {
		t.Errorf("expected joined sink error, got %v", err)
	}
	if len(ok.written) != 1 || ok.written[0].Part != "f1" {
		t.Errorf("expected second sink to receive the sample, got %v", ok.written)
	}
	if len(failing.written) != 1 {
		t.Errorf("expected failing sink to be called once, got %d", len(failing.written))
	}
}

func TestGetLastDBWriteDuration(t *testing.T) {
	m := NewManager(Dependencies{}, &mockBackend{duration: 3 * time.Millisecond})
	if m.GetLastDBWriteDuration() != 3*time.Millisecond {
		t.Errorf("unexpected duration %v", m.GetLastDBWriteDuration())
	}
}
