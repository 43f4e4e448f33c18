package sensor

import (
	"errors"
	"fmt"
	"time"

	"github.com/footcare/footcare/internal/platform/apperr"
)

var (
	ErrMeasurementsRequired = apperr.Validation("Temperature and humidity are required fields")
	ErrUserIDRequired       = apperr.Validation("User ID is required")
	ErrInvalidUserID        = apperr.Validation("Invalid user ID")
	ErrTemperatureRange     = apperr.Validation(fmt.Sprintf("Temperature must be between %g and %g", MinTemperature, MaxTemperature))
	ErrHumidityRange        = apperr.Validation(fmt.Sprintf("Humidity must be between %g and %g", MinHumidity, MaxHumidity))
	ErrOutOfRange           = apperr.Validation("Sensor reading is out of range")
	ErrFutureTimestamp      = apperr.Validation("Timestamp cannot be in the future")
	ErrAccountNotFound      = apperr.NotFound("User not found")
	ErrReadingNotFound      = apperr.NotFound("Sensor data not found or you don't have permission to delete it")
)

var (
	errAccountMissing = errors.New("reading references unknown account")
	errOutOfRange     = errors.New("reading violates range constraint")
)

// ThrottledError is returned by Ingest when the account exceeded its
// reading allowance for the current window.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many readings, retry in %s", e.RetryAfter)
}
