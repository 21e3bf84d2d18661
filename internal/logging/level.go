package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Level orders log verbosity. Lower values are more severe.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var ErrInvalidLevel = errors.New("invalid log level")

var levelNames = [...]string{"ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

// slogLevelTrace sits below slog.LevelDebug so text output keeps ordering.
const slogLevelTrace = slog.Level(-8)

func (l Level) String() string {
	if l < LevelError || l > LevelTrace {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

func (l Level) Valid() bool {
	return l >= LevelError && l <= LevelTrace
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel accepts level names case-insensitively; "warning" is an alias for WARN.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}

// DefaultLevel picks the gate for an environment name: production-like
// environments log INFO and above, everything else logs DEBUG.
func DefaultLevel(env string) Level {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging":
		return LevelInfo
	default:
		return LevelDebug
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelInfo:
		return slog.LevelInfo
	case LevelDebug:
		return slog.LevelDebug
	default:
		return slogLevelTrace
	}
}

func fromSlogLevel(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarn
	case l >= slog.LevelInfo:
		return LevelInfo
	case l >= slog.LevelDebug:
		return LevelDebug
	default:
		return LevelTrace
	}
}
