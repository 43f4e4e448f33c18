// Package blobstore stores uploaded files (profile photos, content photos,
// foot images) on a local directory or an S3-compatible bucket.
package blobstore

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/footcare/footcare/internal/platform/apperr"
)

var (
	ErrFileTooLarge       = apperr.Validation("File exceeds maximum allowed size")
	ErrInvalidContentType = apperr.Validation("Only image files are allowed")
	ErrInvalidName        = apperr.Validation("Invalid file name")
)

// Store is the contract for file storage backends. Names are flat: they never
// contain path separators.
type Store interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	// Delete removes name. Deleting a missing file is not an error.
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// ImageTypes maps accepted image content types to the extension used for
// stored names.
var ImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// SaveUpload validates a multipart file against allowed and maxBytes, stores
// it under a fresh `<uuid><ext>` name and returns that name. A maxBytes of
// zero disables the size check.
func SaveUpload(ctx context.Context, store Store, fh *multipart.FileHeader, allowed map[string]string, maxBytes int64) (string, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", apperr.Validation("Unable to read uploaded file")
	}
	defer f.Close()

	contentType, err := detectContentType(f, fh.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	ext, ok := allowed[contentType]
	if !ok {
		return "", ErrInvalidContentType
	}

	return store.Save(ctx, uuid.NewString()+ext, contentType, f)
}

// detectContentType prefers the sniffed type of the first 512 bytes over the
// client-declared one, and rewinds the file afterwards.
func detectContentType(f multipart.File, declared string) (string, error) {
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", apperr.Validation("Unable to read uploaded file")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", apperr.Internal("rewind upload", err)
	}

	sniffed := http.DetectContentType(buf[:n])
	if sniffed != "application/octet-stream" {
		return sniffed, nil
	}
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = declared[:i]
	}
	return strings.TrimSpace(strings.ToLower(declared)), nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}
