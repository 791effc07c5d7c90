package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	nonDigits     = regexp.MustCompile(`\D`)
	mobilePattern = regexp.MustCompile(`^(?:0)?9\d{9}$`)
)

var ErrInvalidPhone = errors.New("please enter a valid PH mobile (e.g., 9xxxxxxxxx or 09xxxxxxxxx)")

// NormalizePhone validates a Philippine mobile number and returns it in
// E.164 form (+639xxxxxxxxx). An empty number is allowed and stays empty.
func NormalizePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", nil
	}
	cleaned := nonDigits.ReplaceAllString(phone, "")
	if strings.HasPrefix(cleaned, "63") && len(cleaned) == 12 {
		cleaned = cleaned[2:]
	}
	if !mobilePattern.MatchString(cleaned) {
		return "", ErrInvalidPhone
	}
	return "+63" + strings.TrimPrefix(cleaned, "0"), nil
}
