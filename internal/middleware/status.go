package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// responseStatus is the status the client will see once err, if any, has
// gone through echo's error handler.
func responseStatus(c echo.Context, err error) int {
	res := c.Response()
	if err == nil || res.Committed {
		return res.Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
