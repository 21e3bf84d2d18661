package logging

import (
	"context"
	"log/slog"
	"slices"
)

// Slog returns a *slog.Logger whose records land in this logger's history.
// A "category" attribute overrides the default APP category.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(&historyHandler{logger: l})
}

type historyHandler struct {
	logger *Logger
	attrs  []slog.Attr
	group  string
}

func (h *historyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Enabled(fromSlogLevel(level))
}

func (h *historyHandler) Handle(_ context.Context, r slog.Record) error {
	category := CategoryApp
	data := make(map[string]any, len(h.attrs)+r.NumAttrs())

	for _, a := range h.attrs {
		if a.Key == "category" {
			category = a.Value.String()
			continue
		}
		data[a.Key] = attrValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" && h.group == "" {
			category = a.Value.String()
			return true
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		data[key] = attrValue(a.Value)
		return true
	})

	h.logger.log(fromSlogLevel(r.Level), r.Message, category, data)
	return nil
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time()
	case slog.KindGroup:
		group := make(map[string]any, len(v.Group()))
		for _, a := range v.Group() {
			group[a.Key] = attrValue(a.Value)
		}
		return group
	}
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	return v.Any()
}

func (h *historyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	qualified := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		qualified[i] = a
	}
	clone.attrs = append(slices.Clip(h.attrs), qualified...)
	return &clone
}

func (h *historyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	clone.group = name
	return &clone
}
