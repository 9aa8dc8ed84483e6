// Package worker drains queued fairing telemetry into the record store and
// the optional time-series sink.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sstutools/fairing/internal/dispatcher"
	"github.com/sstutools/fairing/internal/queue"
	"github.com/sstutools/fairing/internal/storage"
	"github.com/sstutools/fairing/pkg/core"
)

// DefaultBatchSize bounds the samples handled per flush step.
const DefaultBatchSize = 500

// SampleSink receives every flushed sample in addition to the backend.
type SampleSink interface {
	WriteSample(ctx context.Context, s core.StateSample) error
}

// Sinks fans every sample out to each sink. All sinks are written even when
// one fails.
type Sinks []SampleSink

// WriteSample implements SampleSink.
func (ss Sinks) WriteSample(ctx context.Context, s core.StateSample) error {
	var errs []error
	for _, sink := range ss {
		if err := sink.WriteSample(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Samples   *queue.Queue[core.StateSample]
	Sink      SampleSink
	Logger    *slog.Logger
	BatchSize int
}

// Manager manages the telemetry flush goroutine
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	mu      sync.Mutex
	flushed int
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	if deps.Samples == nil {
		deps.Samples = queue.New[core.StateSample]()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// Samples is the queue producers push to.
func (m *Manager) Samples() *queue.Queue[core.StateSample] {
	return m.deps.Samples
}

// Flushed is the total number of samples handed to the backend so far.
func (m *Manager) Flushed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushed
}

// Flush drains the queue. Sink failures are logged and do not stop the
// drain; backend failures are collected and returned.
func (m *Manager) Flush(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	n := 0
	for {
		batch := m.deps.Samples.PopN(m.deps.BatchSize)
		if len(batch) == 0 {
			break
		}
		for i := range batch {
			s := &batch[i]
			if m.backend != nil {
				if err := m.backend.RecordSample(s); err != nil {
					errs = append(errs, fmt.Errorf("sample %s/%s: %w", s.Craft, s.Part, err))
					continue
				}
			}
			if m.deps.Sink != nil {
				if err := m.deps.Sink.WriteSample(ctx, *s); err != nil {
					m.deps.Logger.Warn("Telemetry sink write failed", "part", string(s.Part), "error", err)
				}
			}
			n++
		}
	}
	m.flushed += n
	return n, errors.Join(errs...)
}

// Run flushes every interval until ctx is cancelled, then flushes once more.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := m.Flush(context.Background()); err != nil {
				m.deps.Logger.Error("Final telemetry flush failed", "error", err)
			}
			return
		case <-ticker.C:
			if _, err := m.Flush(ctx); err != nil {
				m.deps.Logger.Error("Telemetry flush failed", "error", err)
			}
		}
	}
}

// FlushQueueSize bounds the pending explicit flush requests.
const FlushQueueSize = 8

// RegisterHandlers exposes an explicit flush command. It runs off the
// dispatching goroutine so the host never waits on store writes; callers
// block only when FlushQueueSize requests are already pending.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(":TELEMETRY:FLUSH:", m.handleFlush,
		dispatcher.Buffered(FlushQueueSize), dispatcher.Blocking(), dispatcher.Logged())
}

func (m *Manager) handleFlush(_ dispatcher.Event) (any, error) {
	n, err := m.Flush(context.Background())
	if err != nil {
		return nil, err
	}
	m.deps.Logger.Debug("Explicit telemetry flush", "flushed", n, "pending", m.deps.Samples.Len())
	return n, nil
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}
