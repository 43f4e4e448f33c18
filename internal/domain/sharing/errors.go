package sharing

import (
	"errors"

	"github.com/footcare/footcare/internal/platform/apperr"
)

var (
	ErrTargetNotFound = apperr.NotFound("Target user not found")
	ErrTargetRequired = apperr.Validation("Target user ID is required")
	ErrSelfShare      = apperr.Validation("You cannot share data with yourself")
	ErrAlreadySharing = apperr.Conflict("Already sharing data with this user")
	ErrQueryTooShort  = apperr.Validation("Search query too short")
	ErrNoAccess       = apperr.Forbidden("This user is not sharing their data with you")
)

// errNotPatient is returned by the repository when an edge would point at a
// non-patient account.
var errNotPatient = errors.New("sharing grant references a non-patient account")
