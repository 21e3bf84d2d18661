package validation

import (
	"fmt"
	"strconv"
	"strings"

	"opscore/internal/logging"
)

// ParseLimit validates a pagination limit. An empty value yields def.
func ParseLimit(raw string, def, maxLimit int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, raw)
	}
	if n > maxLimit {
		return 0, fmt.Errorf("%w: %d > %d", ErrLimitOutOfRange, n, maxLimit)
	}
	return n, nil
}

// ParseLevelFilter validates an optional maximum-verbosity filter. An empty
// value means no filtering and yields TRACE.
func ParseLevelFilter(raw string) (logging.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return logging.LevelTrace, nil
	}
	return ParseLevel(raw)
}

// ParseLevel validates a required level name.
func ParseLevel(raw string) (logging.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, ErrMissingLevel
	}
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, raw)
	}
	return level, nil
}
