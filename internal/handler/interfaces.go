package handler

import (
	"time"

	"opscore/internal/logging"
	"opscore/internal/monitor"
)

type HealthMonitor interface {
	HealthStatus() monitor.Health
	Metrics() monitor.Snapshot
	Reset()
}

type LogStore interface {
	RecentLogs(limit int, maxLevel logging.Level) []logging.LogEntry
	ClearLogs()
	Export() ([]byte, error)
	Level() logging.Level
	SetLevel(level logging.Level)
	Capacity() int
	Warn(message, category string, data map[string]any)
}

type SubmissionLogger interface {
	Info(message, category string, data map[string]any)
	Performance(operation string, duration, threshold time.Duration, data map[string]any)
}
