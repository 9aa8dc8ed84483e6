package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []*gelf.Message
	err      error
}

func (w *recordingWriter) WriteMessage(m *gelf.Message) error {
	w.messages = append(w.messages, m)
	return w.err
}

func TestGraylogHandler_WritesMessage(t *testing.T) {
	w := &recordingWriter{}
	log := slog.New(NewGraylogHandler(w, "info"))

	log.Warn("shield recompute skipped", "part", "p1", "count", 3)

	require.Len(t, w.messages, 1)
	m := w.messages[0]
	assert.Equal(t, "shield recompute skipped", m.Short)
	assert.Equal(t, int32(gelf.LOG_WARNING), m.Level)
	assert.Equal(t, ScopeName, m.Facility)
	assert.Equal(t, "p1", m.Extra["_part"])
	assert.EqualValues(t, 3, m.Extra["_count"])
	assert.NotZero(t, m.TimeUnix)
}

func TestGraylogHandler_Level(t *testing.T) {
	w := &recordingWriter{}
	h := NewGraylogHandler(w, "warn")

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestGraylogHandler_AttrsAndGroups(t *testing.T) {
	w := &recordingWriter{}
	log := slog.New(NewGraylogHandler(w, "debug")).
		With("part", "p2").
		WithGroup("geometry")

	log.Debug("rebuilt", "bands", 3, slog.Group("bounds", "height", 1.25))

	require.Len(t, w.messages, 1)
	extra := w.messages[0].Extra
	assert.Equal(t, "p2", extra["_part"])
	assert.EqualValues(t, 3, extra["_geometry.bands"])
	assert.Equal(t, 1.25, extra["_geometry.bounds.height"])
	assert.Equal(t, int32(gelf.LOG_DEBUG), w.messages[0].Level)
}

func TestGraylogHandler_PropagatesWriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("unreachable")}
	h := NewGraylogHandler(w, "info")

	err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelError, "x", 0))
	assert.EqualError(t, err, "unreachable")
	assert.Equal(t, int32(gelf.LOG_ERR), w.messages[0].Level)
}

func TestSyslogLevel(t *testing.T) {
	assert.Equal(t, int32(gelf.LOG_INFO), syslogLevel(slog.LevelInfo))
	assert.Equal(t, int32(gelf.LOG_INFO), syslogLevel(slog.LevelInfo+2))
	assert.Equal(t, int32(gelf.LOG_ERR), syslogLevel(slog.LevelError+4))
}
