package monitor

import "time"

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const (
	CheckResponseTime = "response_time"
	CheckErrorRate    = "error_rate"
	CheckUptime       = "uptime"
)

// Response times are in milliseconds.
type EndpointMetrics struct {
	RequestCount        int64     `json:"request_count"`
	TotalResponseTime   float64   `json:"total_response_time_ms"`
	AverageResponseTime float64   `json:"average_response_time_ms"`
	ErrorCount          int64     `json:"error_count"`
	LastReset           time.Time `json:"last_reset"`
}

type SystemMetrics struct {
	StartTime           time.Time `json:"start_time"`
	LastReset           time.Time `json:"last_reset"`
	UptimeSeconds       float64   `json:"uptime_seconds"`
	TotalRequests       int64     `json:"total_requests"`
	TotalErrors         int64     `json:"total_errors"`
	TotalResponseTime   float64   `json:"total_response_time_ms"`
	AverageResponseTime float64   `json:"average_response_time_ms"`
	ErrorRate           float64   `json:"error_rate_percent"`
}

type Snapshot struct {
	Timestamp  time.Time                  `json:"timestamp"`
	InstanceID string                     `json:"instance_id"`
	Endpoints  map[string]EndpointMetrics `json:"endpoints"`
	System     SystemMetrics              `json:"system"`
}

type Health struct {
	Status              Status          `json:"status"`
	Timestamp           time.Time       `json:"timestamp"`
	InstanceID          string          `json:"instance_id"`
	UptimeSeconds       float64         `json:"uptime_seconds"`
	Checks              map[string]bool `json:"checks"`
	TotalRequests       int64           `json:"total_requests"`
	TotalErrors         int64           `json:"total_errors"`
	ErrorRate           float64         `json:"error_rate_percent"`
	AverageResponseTime float64         `json:"average_response_time_ms"`
}
