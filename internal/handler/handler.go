package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"opscore/internal/domain"
	"opscore/internal/logging"
	"opscore/internal/monitor"
	"opscore/internal/validation"
)

const defaultLogsLimit = 100

var (
	errInvalidBody   = map[string]string{"error": "invalid request body"}
	errInvalidLimit  = map[string]string{"error": "limit must be a positive integer"}
	errLimitTooLarge = map[string]string{"error": "limit exceeds maximum"}
	errInvalidLevel  = map[string]string{"error": "level must be one of error, warn, info, debug, trace"}
	errLevelRequired = map[string]string{"error": "level is required"}
	errExportFailed  = map[string]string{"error": "failed to export logs"}
)

// Handler serves the operator endpoints.
type Handler struct {
	monitor        HealthMonitor
	logs           LogStore
	metricsHandler http.Handler
	now            func() time.Time
}

// New builds the admin handler. metricsHandler serves the Prometheus
// exposition and may be nil.
func New(monitor HealthMonitor, logs LogStore, metricsHandler http.Handler) *Handler {
	return &Handler{
		monitor:        monitor,
		logs:           logs,
		metricsHandler: metricsHandler,
		now:            time.Now,
	}
}

// Register mounts the admin routes on g. Destructive routes also pass
// through guard.
func (h *Handler) Register(g *echo.Group, guard echo.MiddlewareFunc) {
	g.GET("/health", h.Health)
	g.GET("/metrics", h.Metrics)
	if h.metricsHandler != nil {
		g.GET("/metrics/prometheus", echo.WrapHandler(h.metricsHandler))
	}
	g.POST("/metrics/reset", h.ResetMetrics, guard)

	g.GET("/logs", h.Logs)
	g.DELETE("/logs", h.ClearLogs, guard)
	g.GET("/logs/export", h.ExportLogs)

	g.GET("/log-level", h.LogLevel)
	g.PUT("/log-level", h.SetLogLevel, guard)
}

func (h *Handler) Health(c echo.Context) error {
	health := h.monitor.HealthStatus()
	status := http.StatusOK
	if health.Status == monitor.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, health)
}

func (h *Handler) Metrics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.monitor.Metrics())
}

func (h *Handler) ResetMetrics(c echo.Context) error {
	h.monitor.Reset()
	return c.JSON(http.StatusOK, domain.ActionResponse{Status: "reset", Timestamp: h.now()})
}

func (h *Handler) Logs(c echo.Context) error {
	limit, err := validation.ParseLimit(c.QueryParam("limit"), min(defaultLogsLimit, h.logs.Capacity()), h.logs.Capacity())
	if err != nil {
		return h.rejectQuery(c, err)
	}
	maxLevel, err := validation.ParseLevelFilter(c.QueryParam("level"))
	if err != nil {
		return h.rejectQuery(c, err)
	}

	entries := h.logs.RecentLogs(limit, maxLevel)
	return c.JSON(http.StatusOK, domain.LogsResponse{
		Count:    len(entries),
		Limit:    limit,
		MaxLevel: maxLevel,
		Entries:  entries,
	})
}

func (h *Handler) ClearLogs(c echo.Context) error {
	h.logs.ClearLogs()
	return c.JSON(http.StatusOK, domain.ActionResponse{Status: "cleared", Timestamp: h.now()})
}

func (h *Handler) ExportLogs(c echo.Context) error {
	body, err := h.logs.Export()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errExportFailed)
	}
	filename := fmt.Sprintf("logs-%s.json", h.now().UTC().Format("20060102T150405Z"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

func (h *Handler) LogLevel(c echo.Context) error {
	return c.JSON(http.StatusOK, domain.LogLevelResponse{Level: h.logs.Level()})
}

func (h *Handler) SetLogLevel(c echo.Context) error {
	var req domain.LogLevelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errInvalidBody)
	}
	level, err := validation.ParseLevel(req.Level)
	if err != nil {
		return h.rejectQuery(c, err)
	}

	previous := h.logs.Level()
	h.logs.SetLevel(level)
	return c.JSON(http.StatusOK, domain.LogLevelResponse{Level: level, Previous: &previous})
}

func (h *Handler) rejectQuery(c echo.Context, err error) error {
	h.logs.Warn("Rejected admin request", logging.CategorySystem, map[string]any{
		"path":  c.Request().URL.Path,
		"error": err.Error(),
	})

	switch {
	case errors.Is(err, validation.ErrInvalidLimit):
		return c.JSON(http.StatusBadRequest, errInvalidLimit)
	case errors.Is(err, validation.ErrLimitOutOfRange):
		return c.JSON(http.StatusBadRequest, errLimitTooLarge)
	case errors.Is(err, validation.ErrMissingLevel):
		return c.JSON(http.StatusBadRequest, errLevelRequired)
	case errors.Is(err, validation.ErrInvalidLevel):
		return c.JSON(http.StatusBadRequest, errInvalidLevel)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "validation failed"})
	}
}
