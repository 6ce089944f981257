package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
)

// ValidateFilename checks if a display filename is valid.
// It is required, cannot contain directory separators and must be <= 255 chars.
func ValidateFilename(filename string) error {
	if filename == "" {
		return errors.New("filename is required")
	}
	if strings.ContainsAny(filename, `/\`) {
		return errors.New("filename cannot contain directory paths")
	}
	if len(filename) > 255 {
		return errors.New("filename too long (max 255 characters)")
	}
	return nil
}

// SanitizeFilename keeps letters, digits, dots, dashes and underscores so
// the name can be used inside an object key.
func SanitizeFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 || base == "." || base == "/" {
		return "file"
	}
	return b.String()
}
