package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"opscore/internal/config"
	"opscore/internal/logging"
	"opscore/internal/ratelimit"
	"opscore/internal/validation"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"

	bypassHeader = "X-Rate-Limit-Bypass"
)

type rateLimitResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	RetryAfter int    `json:"retry_after"`
}

var rateLimiterInternalErr = map[string]string{"error": "internal server error"}

// QuotaLogger receives rejected-request warnings.
type QuotaLogger interface {
	Warn(message, category string, data map[string]any)
}

type RateLimitOptions struct {
	// BypassSecret lets trusted callers skip the limiter via X-Rate-Limit-Bypass.
	// Empty disables the bypass.
	BypassSecret string
	// KeyFunc identifies the caller. Defaults to ClientKey.
	KeyFunc func(c echo.Context) string
}

// ClientKey identifies a caller by canonical client IP.
func ClientKey(c echo.Context) string {
	return validation.CanonicalIP(c.RealIP())
}

// RateLimit counts each request against limiter before the handler runs.
// Every response carries the quota headers; rejected requests get a 429 and
// never reach the handler. Once the handler returns, the final status is
// reported back so skip rules can refund the request.
func RateLimit(limiter *ratelimit.Limiter, logger QuotaLogger, opts RateLimitOptions) echo.MiddlewareFunc {
	keyFunc := opts.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientKey
	}
	secret := []byte(opts.BypassSecret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if bypassed(c, secret) {
				return next(c)
			}

			key := keyFunc(c)
			d := limiter.Hit(key)

			h := c.Response().Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
			h.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
			h.Set(HeaderRateLimitReset, strconv.FormatInt(d.ResetTime.Unix(), 10))

			if !d.Allowed {
				logger.Warn("Rate limit exceeded", logging.CategoryRateLimit, map[string]any{
					"profile":     limiter.Name(),
					"key":         key,
					"method":      c.Request().Method,
					"path":        c.Request().URL.Path,
					"retry_after": d.RetryAfter,
				})
				h.Set(HeaderRetryAfter, strconv.Itoa(d.RetryAfter))
				return c.JSON(http.StatusTooManyRequests, rateLimitResponse{
					Error:      "rate limit exceeded",
					Message:    d.Message,
					RetryAfter: d.RetryAfter,
				})
			}

			err := next(c)
			limiter.Complete(key, responseStatus(c, err))
			return err
		}
	}
}

func bypassed(c echo.Context, secret []byte) bool {
	if len(secret) == 0 {
		return false
	}
	provided := c.Request().Header.Get(bypassHeader)
	return subtle.ConstantTimeCompare([]byte(provided), secret) == 1
}

// AdminRateLimit throttles operator endpoints with a per-IP token bucket.
func AdminRateLimit(cfg *config.AdminConfig, logger *slog.Logger) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RPS),
			Burst:     cfg.Burst,
			ExpiresIn: time.Duration(cfg.ExpireMinutes) * time.Minute,
		},
	)

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return ClientKey(c), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logger.Warn("admin rate limit exceeded",
				slog.String("category", logging.CategoryRateLimit),
				slog.String("ip", identifier),
				slog.String("path", c.Path()),
			)
			c.Response().Header().Set(HeaderRetryAfter, "1")
			return c.JSON(http.StatusTooManyRequests, rateLimitResponse{
				Error:      "rate limit exceeded",
				RetryAfter: 1,
			})
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logger.Error("admin rate limiter error", slog.String("error", err.Error()))
			return c.JSON(http.StatusInternalServerError, rateLimiterInternalErr)
		},
	})
}
