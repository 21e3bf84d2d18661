package handler_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opscore/internal/handler"
	"opscore/internal/logging"
	"opscore/internal/middleware"
	"opscore/internal/ratelimit"
)

func newIntakeServer(t *testing.T, contactMax, bookingMax int) (*echo.Echo, *logging.Logger) {
	t.Helper()
	logger := logging.New(logging.Config{Level: logging.LevelInfo, Stdout: io.Discard, Stderr: io.Discard})

	contact, err := ratelimit.New(ratelimit.Config{Name: "contact", Window: time.Hour, MaxRequests: contactMax})
	require.NoError(t, err)
	booking, err := ratelimit.New(ratelimit.Config{Name: "booking", Window: time.Hour, MaxRequests: bookingMax, SkipFailedRequests: true})
	require.NoError(t, err)

	e := echo.New()
	e.IPExtractor = echo.ExtractIPDirect()
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: func() string { return "ref-1" }}))

	handler.NewIntake(logger).Register(e.Group("/api"),
		middleware.RateLimit(contact, logger, middleware.RateLimitOptions{}),
		middleware.RateLimit(booking, logger, middleware.RateLimitOptions{}),
	)
	return e, logger
}

func post(e *echo.Echo, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = "198.51.100.4:5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestContact_Accepted(t *testing.T) {
	e, logger := newIntakeServer(t, 5, 3)

	rec := post(e, "/api/contact", `{"name":"Ana","email":"ana@Example.org","message":"Hello"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"accepted","reference":"ref-1"}`, rec.Body.String())
	assert.Equal(t, "4", rec.Header().Get(middleware.HeaderRateLimitRemaining))

	entries := logger.RecentLogs(10, logging.LevelInfo)
	require.Len(t, entries, 1)
	assert.Equal(t, "Contact form submission received", entries[0].Message)
	assert.Equal(t, "example.org", entries[0].Data["email_domain"])
	assert.NotContains(t, entries[0].Data, "email")
}

func TestContact_RateLimited(t *testing.T) {
	e, _ := newIntakeServer(t, 2, 3)

	body := `{"name":"Ana","email":"ana@example.org","message":"Hello"}`
	assert.Equal(t, http.StatusAccepted, post(e, "/api/contact", body).Code)
	assert.Equal(t, http.StatusAccepted, post(e, "/api/contact", body).Code)

	rec := post(e, "/api/contact", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRetryAfter))
}

func TestBooking_MalformedBodiesDoNotConsumeQuota(t *testing.T) {
	e, _ := newIntakeServer(t, 5, 1)

	for range 3 {
		assert.Equal(t, http.StatusBadRequest, post(e, "/api/bookings", `{"name":`).Code)
	}

	rec := post(e, "/api/bookings", `{"name":"Ana","email":"ana@example.org","service":"individual","preferred_date":"2025-07-01"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, http.StatusTooManyRequests, post(e, "/api/bookings", `{"name":"Ana"}`).Code)
}
