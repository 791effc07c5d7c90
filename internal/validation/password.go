package validation

import (
	"errors"
	"strings"
)

const (
	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input limit in bytes; longer input is truncated silently.
	MaxPasswordLength = 72
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password must not exceed 72 bytes")
	ErrPasswordCommon   = errors.New("password is too common, please choose a stronger one")
)

var weakPasswordParts = []string{
	"password", "123456", "qwerty", "admin", "letmein",
	"welcome", "monkey", "dragon", "master", "sunshine",
	"iloveyou", "abc123",
}

func ValidatePassword(password string) error {
	switch {
	case len([]rune(password)) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	case isWeak(password):
		return ErrPasswordCommon
	}
	return nil
}

// isWeak flags passwords built around a well-known word or a single repeated character.
func isWeak(password string) bool {
	lower := strings.ToLower(password)
	for _, part := range weakPasswordParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return strings.Trim(lower, string([]rune(lower)[:1])) == ""
}
