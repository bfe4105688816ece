package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// MaxIdentifierLength bounds the length of element ids and aliases.
const MaxIdentifierLength = 256

// ValidateIdentifier validates an element id or alias.
//
// The validation rules are intentionally conservative:
//   - No empty ids
//   - No control characters or null bytes
//   - No leading or trailing whitespace
//   - Maximum length of MaxIdentifierLength bytes
func ValidateIdentifier(kind, id string) error {
	if id == "" {
		return Validation("%s id cannot be empty", kind)
	}

	if len(id) > MaxIdentifierLength {
		return Validation("%s id too long (max %d characters)", kind, MaxIdentifierLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return Validation("%s id %q contains invalid control characters", kind, id)
		}
	}

	if strings.TrimSpace(id) != id {
		return Validation("%s id %q has leading or trailing whitespace", kind, id)
	}

	return nil
}

// ValidateCaseFile validates the path of a case file given on the command line.
// Only TOML files are accepted.
func ValidateCaseFile(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "case file path cannot be empty")
	}

	if strings.ContainsRune(path, '\x00') {
		return New(ErrCodeInvalidPath, "case file path contains null byte")
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".toml" {
		return New(ErrCodeInvalidFormat, "unsupported case file extension %q (want .toml)", ext)
	}

	return nil
}
