package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
	"time"
)

const DefaultMaxEntries = 1000

type Config struct {
	Level      Level
	MaxEntries int
	// Stdout receives INFO, DEBUG and TRACE lines; Stderr receives ERROR and WARN.
	Stdout io.Writer
	Stderr io.Writer
	Now    func() time.Time
}

// Logger is a leveled logger that renders every emitted entry to a console
// sink and keeps the most recent entries in memory for inspection.
type Logger struct {
	mu      sync.Mutex
	level   Level
	history *history

	stdout slog.Handler
	stderr slog.Handler
	errOut io.Writer
	now    func() time.Time
}

func New(cfg Config) *Logger {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if !cfg.Level.Valid() {
		cfg.Level = LevelInfo
	}

	opts := &slog.HandlerOptions{Level: slogLevelTrace, ReplaceAttr: renameTrace}
	return &Logger{
		level:   cfg.Level,
		history: newHistory(cfg.MaxEntries),
		stdout:  slog.NewTextHandler(cfg.Stdout, opts),
		stderr:  slog.NewTextHandler(cfg.Stderr, opts),
		errOut:  cfg.Stderr,
		now:     cfg.Now,
	}
}

func renameTrace(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= slogLevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

func (l *Logger) Error(message, category string, data map[string]any) {
	l.log(LevelError, message, category, data)
}

func (l *Logger) Warn(message, category string, data map[string]any) {
	l.log(LevelWarn, message, category, data)
}

func (l *Logger) Info(message, category string, data map[string]any) {
	l.log(LevelInfo, message, category, data)
}

func (l *Logger) Debug(message, category string, data map[string]any) {
	l.log(LevelDebug, message, category, data)
}

func (l *Logger) Trace(message, category string, data map[string]any) {
	l.log(LevelTrace, message, category, data)
}

// Enabled reports whether an entry at level would pass the current gate.
func (l *Logger) Enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level <= l.level
}

func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevel changes the gate. Invalid levels are ignored.
func (l *Logger) SetLevel(level Level) {
	if !level.Valid() {
		return
	}
	l.mu.Lock()
	previous := l.level
	l.level = level
	l.mu.Unlock()

	if previous != level {
		l.Info("Log level changed", CategorySystem, map[string]any{
			"from": previous.String(),
			"to":   level.String(),
		})
	}
}

// Capacity is the maximum number of retained entries.
func (l *Logger) Capacity() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.history.capacity()
}

// Len is the number of retained entries.
func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.history.len()
}

// RecentLogs returns up to limit of the newest entries at or above the
// severity of maxLevel, oldest first. Passing LevelTrace disables filtering.
func (l *Logger) RecentLogs(limit int, maxLevel Level) []LogEntry {
	if limit <= 0 {
		return []LogEntry{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]LogEntry, 0, min(limit, l.history.len()))
	for i := l.history.len() - 1; i >= 0 && len(out) < limit; i-- {
		if e := l.history.at(i); e.Level <= maxLevel {
			out = append(out, e)
		}
	}
	slices.Reverse(out)
	return out
}

// ClearLogs empties the history and records that it did so.
func (l *Logger) ClearLogs() {
	l.mu.Lock()
	cleared := l.history.len()
	l.history.reset()
	l.mu.Unlock()

	l.Info("Logs cleared", CategorySystem, map[string]any{"cleared": cleared})
}

type exportDocument struct {
	ExportedAt time.Time  `json:"exported_at"`
	Level      Level      `json:"level"`
	MaxEntries int        `json:"max_entries"`
	Count      int        `json:"count"`
	Entries    []LogEntry `json:"entries"`
}

// Export serializes the full history as indented JSON.
func (l *Logger) Export() ([]byte, error) {
	l.mu.Lock()
	doc := exportDocument{
		ExportedAt: l.now(),
		Level:      l.level,
		MaxEntries: l.history.capacity(),
		Count:      l.history.len(),
		Entries:    l.history.entries(),
	}
	l.mu.Unlock()

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export logs: %w", err)
	}
	return out, nil
}

func (l *Logger) log(level Level, message, category string, data map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(l.errOut, "logging: dropped entry %q: %v\n", message, r)
		}
	}()

	if !l.Enabled(level) {
		return
	}
	entry := LogEntry{
		Timestamp: l.now(),
		Level:     level,
		Message:   message,
		Category:  category,
		Data:      sanitize(data),
	}

	l.mu.Lock()
	l.history.push(entry)
	l.mu.Unlock()

	l.write(entry)
}

func (l *Logger) write(entry LogEntry) {
	handler := l.stdout
	if entry.Level <= LevelWarn {
		handler = l.stderr
	}

	r := slog.NewRecord(entry.Timestamp, entry.Level.slogLevel(), entry.Message, 0)
	r.AddAttrs(slog.String("category", entry.Category))
	if len(entry.Data) > 0 {
		r.AddAttrs(slog.String("data", renderData(entry.Data)))
	}
	if err := handler.Handle(context.Background(), r); err != nil {
		fmt.Fprintf(l.errOut, "logging: write entry %q: %v\n", entry.Message, err)
	}
}

// sanitize copies data and replaces it with a description when it cannot be
// encoded or its encoder panics, so later exports never fail on a single
// bad entry.
func sanitize(data map[string]any) (clean map[string]any) {
	if len(data) == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			clean = unserializable(fmt.Errorf("panic during encoding: %v", r), data)
		}
	}()
	if _, err := json.Marshal(data); err != nil {
		return unserializable(err, data)
	}
	return maps.Clone(data)
}

func unserializable(err error, data map[string]any) map[string]any {
	return map[string]any{
		"unserializable": err.Error(),
		"keys":           slices.Sorted(maps.Keys(data)),
	}
}

func renderData(data map[string]any) string {
	out, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", slices.Sorted(maps.Keys(data)))
	}
	return string(out)
}
