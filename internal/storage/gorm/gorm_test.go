package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sstutools/fairing/internal/database"
	"github.com/sstutools/fairing/internal/storage"
	"github.com/sstutools/fairing/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

// newTestBackend creates an initialized Backend on a fresh SQLite file.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
}

func TestSaveAndLoadRecord(t *testing.T) {
	b := newTestBackend(t)

	rec := &core.PartRecord{Craft: "Kerbal X", Part: "p1", Record: core.Record{
		"bottomRadius": "2.5", "currentHeight": "3", "deployed": "False",
	}}
	require.NoError(t, b.SaveRecord(rec))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.SavedAt.IsZero())

	got, err := b.LoadRecord("Kerbal X", "p1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Record, got.Record)
}

func TestSaveRecord_Upserts(t *testing.T) {
	b := newTestBackend(t)

	first := &core.PartRecord{Craft: "c", Part: "p1", Record: core.Record{"currentHeight": "1"}}
	require.NoError(t, b.SaveRecord(first))
	second := &core.PartRecord{Craft: "c", Part: "p1", Record: core.Record{"currentHeight": "4"}}
	require.NoError(t, b.SaveRecord(second))

	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, b.DB().Table("fairing_records").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := b.LoadRecord("c", "p1")
	require.NoError(t, err)
	assert.Equal(t, "4", got.Record["currentHeight"])
}

func TestLoadRecord_NotFound(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.LoadRecord("c", "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecordSample_QueuedUntilFlush(t *testing.T) {
	b := newTestBackend(t)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.RecordSample(&core.StateSample{
			Time:     t0.Add(time.Duration(i) * time.Second),
			Craft:    "c",
			Part:     "p1",
			Kind:     core.SampleState,
			Angle:    float64(i * 20),
			Shielded: []core.PartRef{"payload"},
		}))
	}
	assert.Equal(t, 3, b.Pending())

	samples, err := b.LoadSamples("c", "p1")
	require.NoError(t, err)
	assert.Empty(t, samples)

	require.NoError(t, b.Flush())
	assert.Zero(t, b.Pending())

	samples, err = b.LoadSamples("c", "p1")
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, 40.0, samples[2].Angle)
	assert.Equal(t, []core.PartRef{"payload"}, samples[0].Shielded)
	assert.True(t, samples[0].Time.Equal(t0))
}

func TestClose_FlushesPending(t *testing.T) {
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	require.NoError(t, b.RecordSample(&core.StateSample{Craft: "c", Part: "p1"}))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "close is idempotent")

	samples, err := b.LoadSamples("c", "p1")
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}

func TestWriterLoop_FlushesPeriodically(t *testing.T) {
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, b.RecordSample(&core.StateSample{Craft: "c", Part: "p1"}))

	assert.Eventually(t, func() bool { return b.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)
}
