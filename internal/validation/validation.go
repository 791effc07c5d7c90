// Package validation checks user input before it reaches a service.
package validation

import "errors"

var sentinels = []error{
	ErrNameRequired, ErrNameTooLong, ErrNameInvalid,
	ErrEmailRequired, ErrEmailTooLong, ErrEmailFormat,
	ErrPasswordTooShort, ErrPasswordTooLong, ErrPasswordCommon,
	ErrInvalidPhone, ErrInvalidFile,
}

// IsValidation reports whether err came from one of this package's checks.
func IsValidation(err error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
