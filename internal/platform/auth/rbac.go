package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks the principal has one of the
// specified roles. It must run after Authenticate.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if p != nil {
				for _, required := range roles {
					if p.Role == required {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// IsPrivileged reports whether the request's principal may edit shared
// organisational data such as educational content.
func IsPrivileged(c echo.Context) bool {
	p := PrincipalFromContext(c.Request().Context())
	return p != nil && p.Privileged
}

// RequirePrivileged rejects principals without the privileged flag.
func RequirePrivileged(message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsPrivileged(c) {
				return echo.NewHTTPError(http.StatusForbidden, message)
			}
			return next(c)
		}
	}
}
