// Package monitor aggregates per-endpoint and system request metrics and
// derives a health classification from them.
package monitor

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"opscore/internal/logging"
)

// Logger receives slow-request and server-error diagnostics.
type Logger interface {
	Warn(message, category string, data map[string]any)
	Error(message, category string, data map[string]any)
	Info(message, category string, data map[string]any)
}

type Config struct {
	SlowRequestThreshold time.Duration
	MaxAvgResponseTime   time.Duration
	// MaxErrorRate is a percentage in [0, 100].
	MaxErrorRate float64
	MinUptime    time.Duration
}

func DefaultConfig() Config {
	return Config{
		SlowRequestThreshold: 2 * time.Second,
		MaxAvgResponseTime:   time.Second,
		MaxErrorRate:         5,
		MinUptime:            time.Minute,
	}
}

type endpointStats struct {
	requests  int64
	errors    int64
	totalMs   float64
	lastReset time.Time
}

type Option func(*Monitor)

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func WithPathCache(c PathCache) Option {
	return func(m *Monitor) { m.paths = c }
}

func WithInstanceID(id string) Option {
	return func(m *Monitor) { m.instanceID = id }
}

type Monitor struct {
	cfg        Config
	logger     Logger
	paths      PathCache
	now        func() time.Time
	instanceID string

	mu            sync.Mutex
	startTime     time.Time
	lastReset     time.Time
	endpoints     map[string]*endpointStats
	totalRequests int64
	totalErrors   int64
	totalMs       float64
}

func New(cfg Config, logger Logger, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		endpoints: make(map[string]*endpointStats),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.instanceID == "" {
		m.instanceID = uuid.NewString()
	}
	m.startTime = m.now()
	m.lastReset = m.startTime
	return m
}

func (m *Monitor) InstanceID() string { return m.instanceID }

// EndpointKey returns the aggregation key for a request.
func (m *Monitor) EndpointKey(method, path string) string {
	return strings.ToUpper(method) + " " + normalizeCached(m.paths, path)
}

// RecordRequest folds one completed request into the endpoint and system
// aggregates. Status codes >= 400 count as errors.
func (m *Monitor) RecordRequest(method, path string, status int, duration time.Duration) {
	key := m.EndpointKey(method, path)
	ms := float64(duration) / float64(time.Millisecond)
	failed := status >= 400

	m.mu.Lock()
	ep, ok := m.endpoints[key]
	if !ok {
		ep = &endpointStats{lastReset: m.now()}
		m.endpoints[key] = ep
	}
	ep.requests++
	ep.totalMs += ms
	m.totalRequests++
	m.totalMs += ms
	if failed {
		ep.errors++
		m.totalErrors++
	}
	m.mu.Unlock()

	if m.logger == nil {
		return
	}
	data := map[string]any{
		"method":           strings.ToUpper(method),
		"path":             path,
		"endpoint":         key,
		"status":           status,
		"response_time_ms": ms,
	}
	if duration > m.cfg.SlowRequestThreshold {
		data["threshold_ms"] = m.cfg.SlowRequestThreshold.Milliseconds()
		m.logger.Warn("Slow request detected", logging.CategoryPerformance, data)
	}
	if status >= 500 {
		m.logger.Error("Server error response", logging.CategoryHTTP, data)
	}
}

// Metrics returns a point-in-time copy with derived values computed now.
func (m *Monitor) Metrics() Snapshot {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	endpoints := make(map[string]EndpointMetrics, len(m.endpoints))
	for key, ep := range m.endpoints {
		endpoints[key] = EndpointMetrics{
			RequestCount:        ep.requests,
			TotalResponseTime:   ep.totalMs,
			AverageResponseTime: average(ep.totalMs, ep.requests),
			ErrorCount:          ep.errors,
			LastReset:           ep.lastReset,
		}
	}

	return Snapshot{
		Timestamp:  now,
		InstanceID: m.instanceID,
		Endpoints:  endpoints,
		System: SystemMetrics{
			StartTime:           m.startTime,
			LastReset:           m.lastReset,
			UptimeSeconds:       now.Sub(m.startTime).Seconds(),
			TotalRequests:       m.totalRequests,
			TotalErrors:         m.totalErrors,
			TotalResponseTime:   m.totalMs,
			AverageResponseTime: average(m.totalMs, m.totalRequests),
			ErrorRate:           errorRate(m.totalErrors, m.totalRequests),
		},
	}
}

// Endpoint returns the metrics for one aggregation key.
func (m *Monitor) Endpoint(key string) (EndpointMetrics, bool) {
	snap := m.Metrics()
	ep, ok := snap.Endpoints[key]
	return ep, ok
}

// HealthStatus evaluates the latency, error-rate and uptime checks.
// All passing is healthy, at least half passing is degraded.
func (m *Monitor) HealthStatus() Health {
	snap := m.Metrics()
	sys := snap.System

	checks := map[string]bool{
		CheckResponseTime: sys.AverageResponseTime < msFloat(m.cfg.MaxAvgResponseTime),
		CheckErrorRate:    sys.ErrorRate < m.cfg.MaxErrorRate,
		CheckUptime:       sys.UptimeSeconds >= m.cfg.MinUptime.Seconds(),
	}

	return Health{
		Status:              classify(checks),
		Timestamp:           snap.Timestamp,
		InstanceID:          snap.InstanceID,
		UptimeSeconds:       sys.UptimeSeconds,
		Checks:              checks,
		TotalRequests:       sys.TotalRequests,
		TotalErrors:         sys.TotalErrors,
		ErrorRate:           sys.ErrorRate,
		AverageResponseTime: sys.AverageResponseTime,
	}
}

// Reset clears endpoint and system counters. Uptime keeps counting from
// process start.
func (m *Monitor) Reset() {
	m.mu.Lock()
	cleared := len(m.endpoints)
	m.endpoints = make(map[string]*endpointStats)
	m.totalRequests = 0
	m.totalErrors = 0
	m.totalMs = 0
	m.lastReset = m.now()
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("Metrics reset", logging.CategorySystem, map[string]any{"endpoints_cleared": cleared})
	}
}

// EndpointKeys lists the tracked aggregation keys in sorted order.
func (m *Monitor) EndpointKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.endpoints))
}

func classify(checks map[string]bool) Status {
	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}
	switch {
	case passed == len(checks):
		return StatusHealthy
	case passed*2 >= len(checks):
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

func average(totalMs float64, n int64) float64 {
	if n == 0 {
		return 0
	}
	return totalMs / float64(n)
}

func errorRate(errors, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(errors) / float64(total) * 100
}

func msFloat(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
