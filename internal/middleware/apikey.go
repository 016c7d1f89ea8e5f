package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIKey gates the whole HTTP surface behind a shared key carried in the
// X-Api-Key header. When no key is configured the middleware is a
// pass-through, so development setups work without one. The comparison is
// constant-time.
func APIKey(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" {
				return next(c)
			}
			got := c.Request().Header.Get("X-Api-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid api key"})
			}
			return next(c)
		}
	}
}
