package logging

import (
	"maps"
	"time"
)

const (
	CategoryApp         = "APP"
	CategorySystem      = "SYSTEM"
	CategoryHTTP        = "HTTP"
	CategoryDatabase    = "DATABASE"
	CategoryEmail       = "EMAIL"
	CategoryAuth        = "AUTH"
	CategorySecurity    = "SECURITY"
	CategoryPerformance = "PERFORMANCE"
	CategoryRateLimit   = "RATE_LIMIT"
)

// Request records a completed HTTP request. Client errors and server errors
// are logged as warnings; the monitor reports server errors separately.
func (l *Logger) Request(method, url string, status int, duration time.Duration, requestID string) {
	data := map[string]any{
		"method":      method,
		"url":         url,
		"status":      status,
		"duration_ms": durationMs(duration),
	}
	if requestID != "" {
		data["request_id"] = requestID
	}
	if status >= 400 {
		l.Warn("Request completed", CategoryHTTP, data)
		return
	}
	l.Info("Request completed", CategoryHTTP, data)
}

func (l *Logger) Database(operation, table string, duration time.Duration, err error) {
	data := map[string]any{
		"operation":   operation,
		"table":       table,
		"duration_ms": durationMs(duration),
		"success":     err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
		l.Error("Database operation failed", CategoryDatabase, data)
		return
	}
	l.Info("Database operation completed", CategoryDatabase, data)
}

func (l *Logger) Email(to, subject string, err error) {
	data := map[string]any{
		"to":      to,
		"subject": subject,
		"success": err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
		l.Error("Email delivery failed", CategoryEmail, data)
		return
	}
	l.Info("Email sent", CategoryEmail, data)
}

// Auth records an authentication attempt. Failures are warnings.
func (l *Logger) Auth(event, subject string, success bool, data map[string]any) {
	payload := merge(data, map[string]any{
		"event":   event,
		"subject": subject,
		"success": success,
	})
	if !success {
		l.Warn("Authentication failed", CategoryAuth, payload)
		return
	}
	l.Info("Authentication succeeded", CategoryAuth, payload)
}

// Security records a security-relevant event such as a rejected admin call.
func (l *Logger) Security(event string, data map[string]any) {
	l.Warn("Security event: "+event, CategorySecurity, merge(data, map[string]any{"event": event}))
}

// Performance logs a timing. Durations above threshold are warnings,
// everything else is debug output.
func (l *Logger) Performance(operation string, duration, threshold time.Duration, data map[string]any) {
	payload := merge(data, map[string]any{
		"operation":    operation,
		"duration_ms":  durationMs(duration),
		"threshold_ms": durationMs(threshold),
	})
	if duration > threshold {
		l.Warn("Slow operation: "+operation, CategoryPerformance, payload)
		return
	}
	l.Debug("Operation timing: "+operation, CategoryPerformance, payload)
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func merge(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	maps.Copy(out, base)
	maps.Copy(out, extra)
	return out
}
