package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// maxImageIDLength bounds identifiers echoed back into URLs and cache keys.
const maxImageIDLength = 128

// ValidateImageID validates an image identifier returned by the lab service
// before it is embedded in a query string, a cache key or a file name.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - Only letters, digits, '-', '_' and '.'
//   - No path traversal sequences
//   - Maximum length of 128 characters
func ValidateImageID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidImageID, "image id cannot be empty")
	}
	if len(id) > maxImageIDLength {
		return New(ErrCodeInvalidImageID, "image id too long (max %d characters)", maxImageIDLength)
	}
	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidImageID, "image id contains invalid sequence %q", "..")
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.') {
			return New(ErrCodeInvalidImageID, "image id contains invalid character %q", r)
		}
	}
	return nil
}

// ValidateOutputPath validates a path the CLI is about to write an artifact to.
// It rejects empty paths, control characters and paths that point at a directory
// separator only.
func ValidateOutputPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "output path cannot be empty")
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "output path contains control characters")
		}
	}
	base := filepath.Base(filepath.Clean(path))
	if base == "." || base == string(filepath.Separator) {
		return New(ErrCodeInvalidPath, "output path %q does not name a file", path)
	}
	return nil
}
