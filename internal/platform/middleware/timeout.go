package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/footcare/footcare/internal/platform/apperr"
)

// ErrRequestTimeout is returned when a handler fails after the request
// deadline passed.
var ErrRequestTimeout = apperr.Timeout("Request processing exceeded the allowed time limit", nil)

// RequestTimeout puts a deadline of timeout on the request context. The
// handler runs on the calling goroutine; database and upstream calls observe
// the deadline through the context, and an error returned once it has
// passed becomes a 504. Paths under any of skipPrefixes keep the parent
// context.
func RequestTimeout(timeout time.Duration, skipPrefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, p := range skipPrefixes {
				if p != "" && strings.HasPrefix(path, p) {
					return next(c)
				}
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return &apperr.Error{Kind: apperr.KindTimeout, Message: ErrRequestTimeout.Message, Err: err}
			}
			return err
		}
	}
}
