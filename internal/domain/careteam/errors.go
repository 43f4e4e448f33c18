package careteam

import (
	"errors"

	"github.com/footcare/footcare/internal/platform/apperr"
)

var (
	ErrPatientNotFound = apperr.NotFound("Patient not found")
	ErrPatientRequired = apperr.Validation("Patient ID is required")
	ErrAlreadyAssigned = apperr.Conflict("Patient already assigned to this clinician")
	ErrNotAssigned     = apperr.NotFound("Patient not found in clinician's list")
	ErrQueryTooShort   = apperr.Validation("Search query too short. Minimum 2 characters.")
	ErrNoPatientAccess = apperr.Forbidden("You do not have access to this patient's data")
)

var errNotPatient = errors.New("assignment references a non-patient account")
