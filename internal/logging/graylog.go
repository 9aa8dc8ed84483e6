package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// MessageWriter is the part of *gelf.Writer the handler uses.
type MessageWriter interface {
	WriteMessage(m *gelf.Message) error
}

// GraylogHandler ships records as GELF messages. Attributes become
// underscore-prefixed additional fields.
type GraylogHandler struct {
	w      MessageWriter
	host   string
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// NewGraylogWriter dials the GELF UDP endpoint at address.
func NewGraylogWriter(address string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("failed to create graylog writer: %w", err)
	}
	w.Facility = ScopeName
	return w, nil
}

// NewGraylogHandler creates a handler writing to w at the given minimum level.
func NewGraylogHandler(w MessageWriter, level string) *GraylogHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &GraylogHandler{w: w, host: host, level: parseLevel(level)}
}

// Enabled reports whether level passes the handler's minimum.
func (h *GraylogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle converts r to a GELF message and writes it.
func (h *GraylogHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	extra := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addExtra(extra, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addExtra(extra, h.prefix, a)
		return true
	})

	return h.w.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(ts.UnixNano()) / float64(time.Second),
		Level:    syslogLevel(r.Level),
		Facility: ScopeName,
		Extra:    extra,
	})
}

// WithAttrs returns a handler that adds attrs to every message.
func (h *GraylogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		c.attrs = append(c.attrs, a)
	}
	return &c
}

// WithGroup returns a handler that prefixes later attribute keys with name.
func (h *GraylogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func addExtra(extra map[string]interface{}, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		for _, g := range a.Value.Group() {
			addExtra(extra, prefix+a.Key+".", g)
		}
		return
	}
	extra["_"+prefix+a.Key] = a.Value.Any()
}

// syslogLevel maps slog levels onto the syslog severities GELF expects.
func syslogLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return gelf.LOG_ERR
	case l >= slog.LevelWarn:
		return gelf.LOG_WARNING
	case l >= slog.LevelInfo:
		return gelf.LOG_INFO
	default:
		return gelf.LOG_DEBUG
	}
}
