package blobstore

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/footcare/footcare/internal/platform/apperr"
)

// OptionalUpload returns the file uploaded in field, or nil when the request
// is not multipart or has no such file.
func OptionalUpload(c echo.Context, field string) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperr.Validation("Invalid multipart upload")
	}
	return fh, nil
}

// RequiredUpload is like OptionalUpload but fails with missingMsg when no
// file is present.
func RequiredUpload(c echo.Context, field, missingMsg string) (*multipart.FileHeader, error) {
	fh, err := OptionalUpload(c, field)
	if err != nil {
		return nil, err
	}
	if fh == nil {
		return nil, apperr.Validation(missingMsg)
	}
	return fh, nil
}
