package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// HTTPErrorHandler renders every error returned by a handler as
// {"message": ...} with the status derived from its Kind.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

func render(err error) (int, map[string]interface{}) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if he.Message != nil {
			msg = fmt.Sprintf("%v", he.Message)
		}
		return he.Code, map[string]interface{}{"message": msg}
	}

	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, map[string]interface{}{"message": "Server error"}
	}

	msg := ae.Message
	if ae.Kind == KindInternal {
		msg = "Server error"
	}
	body := map[string]interface{}{"message": msg}
	for k, v := range ae.Details {
		body[k] = v
	}
	return ae.Kind.HTTPStatus(), body
}
