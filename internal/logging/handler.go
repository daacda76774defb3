package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fanout hands each record to every sink enabled for its level. A failing
// sink does not keep the record from the others.
type fanout struct {
	sinks []slog.Handler
}

// newFanout drops nil sinks. A single sink is returned as is.
func newFanout(sinks ...slog.Handler) slog.Handler {
	valid := make([]slog.Handler, 0, len(sinks))
	for _, h := range sinks {
		if h != nil {
			valid = append(valid, h)
		}
	}
	if len(valid) == 1 {
		return valid[0]
	}
	return &fanout{sinks: valid}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.sinks {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *fanout) each(fn func(slog.Handler) slog.Handler) *fanout {
	sinks := make([]slog.Handler, len(f.sinks))
	for i, h := range f.sinks {
		sinks[i] = fn(h)
	}
	return &fanout{sinks: sinks}
}

// matchHandler stamps every record with the match and turn being played.
// The attributes are read at log time, so loggers created before game
// start still pick them up.
type matchHandler struct {
	inner slog.Handler
	match *MatchContext
}

func (h *matchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *matchHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.match.Attrs()...)
	return h.inner.Handle(ctx, r)
}

func (h *matchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &matchHandler{inner: h.inner.WithAttrs(attrs), match: h.match}
}

func (h *matchHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &matchHandler{inner: h.inner.WithGroup(name), match: h.match}
}
