package middleware

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"opscore/internal/logging"
)

const HeaderResponseTime = "X-Response-Time"

type RequestRecorder interface {
	RecordRequest(method, path string, status int, duration time.Duration)
}

type RequestLogger interface {
	Request(method, url string, status int, duration time.Duration, requestID string)
	Debug(message, category string, data map[string]any)
	Error(message, category string, data map[string]any)
}

// Monitor times each request, stamps X-Response-Time just before headers
// are written and records the outcome once the handler returns.
// Instrumentation panics are logged and swallowed.
func Monitor(recorder RequestRecorder, logger RequestLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			res := c.Response()

			stamped := false
			res.Before(func() {
				res.Header().Set(HeaderResponseTime, formatResponseTime(time.Since(start)))
				stamped = true
			})

			err := next(c)

			duration := time.Since(start)
			status := responseStatus(c, err)
			req := c.Request()

			observe(logger, func() {
				recorder.RecordRequest(req.Method, req.URL.Path, status, duration)

				if res.Committed && !stamped {
					logger.Debug("Response sent before timing header could be set", logging.CategoryPerformance, map[string]any{
						"method":      req.Method,
						"path":        req.URL.Path,
						"duration_ms": float64(duration) / float64(time.Millisecond),
					})
				}
				logger.Request(req.Method, req.URL.RequestURI(), status, duration, res.Header().Get(echo.HeaderXRequestID))
			})

			return err
		}
	}
}

func observe(logger RequestLogger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Request instrumentation failed", logging.CategoryPerformance, map[string]any{
				"panic": fmt.Sprint(r),
			})
		}
	}()
	fn()
}

func formatResponseTime(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}
