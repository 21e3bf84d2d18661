package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"opscore/internal/logging"
)

func newLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.New(logging.Config{
		Level:      logging.LevelTrace,
		MaxEntries: 100,
		Stdout:     io.Discard,
		Stderr:     io.Discard,
	})
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.IPExtractor = echo.ExtractIPDirect()
	return e
}

func serve(e *echo.Echo, method, target, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func categoryEntries(l *logging.Logger, category string) []logging.LogEntry {
	var out []logging.LogEntry
	for _, e := range l.RecentLogs(1000, logging.LevelTrace) {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}
