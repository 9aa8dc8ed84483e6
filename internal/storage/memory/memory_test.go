package memory

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sstutools/fairing/internal/config"
	"github.com/sstutools/fairing/internal/storage"
	"github.com/sstutools/fairing/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Exporter interface
var _ storage.Exporter = (*Backend)(nil)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNew(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: "/tmp/test", CompressOutput: true})

	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.cfg.OutputDir != "/tmp/test" {
		t.Errorf("expected OutputDir=/tmp/test, got %s", b.cfg.OutputDir)
	}
	if b.records == nil {
		t.Error("records map not initialized")
	}
}

func TestInitAndClose_Empty(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})

	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if b.GetExportedFilePath() != "" {
		t.Error("expected no export for an empty backend")
	}
}

func TestSaveAndLoadRecord(t *testing.T) {
	b := New(config.MemoryConfig{})
	b.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	rec := &core.PartRecord{Craft: "Kerbal X", Part: "p1", Record: core.Record{"currentHeight": "2"}}
	if err := b.SaveRecord(rec); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}
	if rec.ID != 1 {
		t.Errorf("expected ID=1, got %d", rec.ID)
	}

	// caller mutations do not leak into the store
	rec.Record["currentHeight"] = "9"

	got, err := b.LoadRecord("Kerbal X", "p1")
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if got.Record["currentHeight"] != "2" {
		t.Errorf("expected stored height 2, got %s", got.Record["currentHeight"])
	}
	if !got.SavedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected SavedAt %v", got.SavedAt)
	}
}

func TestSaveRecord_ReplacesKeepsID(t *testing.T) {
	b := New(config.MemoryConfig{})

	_ = b.SaveRecord(&core.PartRecord{Craft: "c", Part: "p1", Record: core.Record{"a": "1"}})
	_ = b.SaveRecord(&core.PartRecord{Craft: "c", Part: "p2", Record: core.Record{}})
	again := &core.PartRecord{Craft: "c", Part: "p1", Record: core.Record{"a": "2"}}
	_ = b.SaveRecord(again)

	if again.ID != 1 {
		t.Errorf("expected replaced record to keep ID 1, got %d", again.ID)
	}
	if len(b.records) != 2 {
		t.Errorf("expected 2 records, got %d", len(b.records))
	}
}

func TestLoadRecord_NotFound(t *testing.T) {
	b := New(config.MemoryConfig{})

	_, err := b.LoadRecord("c", "ghost")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordSample_CopiesShielded(t *testing.T) {
	b := New(config.MemoryConfig{})
	shielded := []core.PartRef{"payload"}

	_ = b.RecordSample(&core.StateSample{Part: "p1", Kind: core.SampleState, Shielded: shielded})
	shielded[0] = "changed"

	samples := b.Samples()
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if samples[0].Shielded[0] != "payload" {
		t.Errorf("expected copied shielded list, got %v", samples[0].Shielded)
	}
}

func TestConcurrentSaves(t *testing.T) {
	b := New(config.MemoryConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.SaveRecord(&core.PartRecord{Craft: "c", Part: core.PartRef(rune('a' + i%5)), Record: core.Record{}})
			_ = b.RecordSample(&core.StateSample{Part: "p"})
		}(i)
	}
	wg.Wait()

	if len(b.records) != 5 {
		t.Errorf("expected 5 records, got %d", len(b.records))
	}
	if len(b.Samples()) != 50 {
		t.Errorf("expected 50 samples, got %d", len(b.Samples()))
	}
}
