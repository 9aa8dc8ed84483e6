// Package monitor periodically reports the health of the record pipeline:
// live modules, queued and flushed telemetry and the last store write time.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sstutools/fairing/internal/cache"
	"github.com/sstutools/fairing/internal/logging"
	"github.com/sstutools/fairing/internal/worker"
)

// Measurement is the measurement name of performance points.
const Measurement = "fairing_performance"

// PointWriter is the part of the influx manager the monitor uses.
type PointWriter interface {
	WritePoint(ctx context.Context, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager    *logging.SlogManager
	WorkerManager *worker.Manager
	Modules       *cache.ModuleCache
	Sink          PointWriter
	StatusPath    string
	Craft         string
	Interval      time.Duration
}

// Performance is one status snapshot.
type Performance struct {
	Time                time.Time `json:"time"`
	Craft               string    `json:"craft"`
	Modules             int       `json:"modules"`
	PendingSamples      int       `json:"pendingSamples"`
	FlushedSamples      int       `json:"flushedSamples"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current status snapshot.
func (s *Service) GetProgramStatus() Performance {
	perf := Performance{
		Time:  time.Now(),
		Craft: s.deps.Craft,
	}
	if s.deps.Modules != nil {
		perf.Modules = s.deps.Modules.Len()
	}
	if w := s.deps.WorkerManager; w != nil {
		perf.PendingSamples = w.Samples().Len()
		perf.FlushedSamples = w.Flushed()
		perf.LastWriteDurationMs = float32(w.GetLastDBWriteDuration().Microseconds()) / 1000
	}
	return perf
}

// ToPoint converts a snapshot to a line protocol point.
func (p Performance) ToPoint() *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(Measurement).
		AddTag("craft", p.Craft).
		AddField("modules", p.Modules).
		AddField("pending_samples", p.PendingSamples).
		AddField("flushed_samples", p.FlushedSamples).
		AddField("last_write_ms", p.LastWriteDurationMs).
		SetTime(p.Time)
}

// Report takes one snapshot, rewrites the status file and forwards the point.
func (s *Service) Report(ctx context.Context) (Performance, error) {
	perf := s.GetProgramStatus()

	if s.deps.StatusPath != "" {
		if err := writeStatusFile(s.deps.StatusPath, perf); err != nil {
			return perf, err
		}
	}
	if s.deps.Sink != nil {
		if err := s.deps.Sink.WritePoint(ctx, perf.ToPoint()); err != nil {
			return perf, fmt.Errorf("writing performance point: %w", err)
		}
	}
	return perf, nil
}

func writeStatusFile(path string, perf Performance) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating status directory: %w", err)
	}
	data, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if _, err := s.Report(context.Background()); err != nil {
					logger.Error("Error reporting status", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
