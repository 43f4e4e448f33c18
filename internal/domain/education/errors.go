package education

import "github.com/footcare/footcare/internal/platform/apperr"

var (
	ErrNotFound        = apperr.NotFound("Educational content not found")
	ErrFieldsRequired  = apperr.Validation("Title, description, and content are required")
	ErrInvalidType     = apperr.Validation("Invalid content type")
	ErrInvalidCategory = apperr.Validation("Invalid category")

	ErrCreateForbidden = apperr.Forbidden("Only admins can create educational content")
	ErrUpdateForbidden = apperr.Forbidden("Only admins can update educational content")
	ErrDeleteForbidden = apperr.Forbidden("Only admins can delete educational content")
)

// StatsForbiddenMessage rejects unprivileged callers of the stats route.
const StatsForbiddenMessage = "Only admins can view content statistics"

// InvalidCategory is ErrInvalidCategory carrying the accepted values.
func InvalidCategory() error {
	return ErrInvalidCategory.WithDetails(map[string]interface{}{"validCategories": Categories})
}
