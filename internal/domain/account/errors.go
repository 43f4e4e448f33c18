package account

import (
	"errors"

	"github.com/footcare/footcare/internal/platform/apperr"
)

var (
	ErrNotFound              = apperr.NotFound("User not found")
	ErrClinicianNotFound     = apperr.NotFound("Clinician not found")
	ErrAllFieldsRequired     = apperr.Validation("All fields are required")
	ErrCredentialsRequired   = apperr.Validation("Email and password are required")
	ErrPasswordMismatch      = apperr.Validation("Passwords do not match")
	ErrInvalidSpecialization = apperr.Validation("Invalid specialization")
	ErrInvalidDateOfBirth    = apperr.Validation("Invalid date of birth")
	ErrInvalidPhone          = apperr.Validation("Invalid phone number")
	ErrEmailTaken            = apperr.Conflict("Email already exists")
	ErrClinicianTaken        = apperr.Conflict("Clinician with this email or license number already exists")
	ErrInvalidCredentials    = apperr.Unauthorized("Invalid credentials")
)

// Raised by the repository; the service maps them to role-specific messages.
var (
	errEmailExists   = errors.New("email already registered")
	errLicenseExists = errors.New("license number already registered")
)
