package middleware

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"

	"github.com/labstack/echo/v4"
)

const AdminSecretHeader = "X-Admin-Secret"

var errAdminUnauthorized = map[string]string{"error": "unauthorized"}

type SecurityLogger interface {
	Security(event string, data map[string]any)
}

// AdminGuard requires X-Admin-Secret to match secret. An empty secret
// leaves the guarded routes open.
func AdminGuard(secret string, logger SecurityLogger) echo.MiddlewareFunc {
	secretBytes := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}
			provided := c.Request().Header.Get(AdminSecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), secretBytes) != 1 {
				logger.Security("rejected admin request", map[string]any{
					"ip":      ClientKey(c),
					"method":  c.Request().Method,
					"path":    c.Request().URL.Path,
					"missing": provided == "",
				})
				return c.JSON(http.StatusUnauthorized, errAdminUnauthorized)
			}
			return next(c)
		}
	}
}

func RegisterPprof(g *echo.Group) {
	g.GET("/", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	g.GET("/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	g.GET("/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	g.GET("/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	g.POST("/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	g.GET("/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		g.GET("/"+name, echo.WrapHandler(pprof.Handler(name)))
	}
}
