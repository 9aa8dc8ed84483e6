package logging

import (
	"context"
	"log/slog"
	"math"
)

// PartStateFunc reports a fairing module's deployment state and panel angle
// in degrees. ok is false while the module does not exist yet.
type PartStateFunc func() (state string, angle float64, ok bool)

// partHandler stamps every record with the part ref and, when the module
// reports them, its deployment state and panel angle at log time.
type partHandler struct {
	inner slog.Handler
	state PartStateFunc
}

func newPartHandler(inner slog.Handler, part string, state PartStateFunc) *partHandler {
	return &partHandler{
		inner: inner.WithAttrs([]slog.Attr{slog.String("part", part)}),
		state: state,
	}
}

func (h *partHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *partHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.state != nil {
		if state, angle, ok := h.state(); ok {
			r.AddAttrs(slog.String("state", state))
			// stowed panels sit at zero
			if angle != 0 {
				r.AddAttrs(slog.Float64("angle", math.Round(angle*100)/100))
			}
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *partHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &partHandler{inner: h.inner.WithAttrs(attrs), state: h.state}
}

func (h *partHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &partHandler{inner: h.inner.WithGroup(name), state: h.state}
}
