package validation

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxNameLength = 100

var (
	ErrNameRequired = errors.New("name is required")
	ErrNameTooLong  = errors.New("name is too long (max 100 characters)")
	ErrNameInvalid  = errors.New("name contains characters that are not allowed")
)

// ValidateName checks a display name. Length counts characters, not bytes,
// so names like "Niña Dela Peña" are measured as written.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return ErrNameInvalid
	}
	return nil
}
