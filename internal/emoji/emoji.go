// Package emoji converts ISO 3166-1 alpha-2 country codes into flag emoji.
package emoji

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// RegionalIndicatorOffset maps 'A'..'Z' onto U+1F1E6..U+1F1FF.
const RegionalIndicatorOffset = 127397

const (
	firstIndicator = 'A' + RegionalIndicatorOffset
	lastIndicator  = 'Z' + RegionalIndicatorOffset
)

// ValidationError reports a country code that cannot be turned into a flag.
type ValidationError struct {
	Code   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid country code %q: %s", e.Code, e.Reason)
}

// IsValidationError returns true if err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FromCountryCode returns the flag emoji for a two-letter country code.
//
// The code must be exactly two ASCII letters; it is upper-cased and each
// letter is shifted into the regional-indicator block. Anything else is
// rejected rather than producing a partial symbol.
func FromCountryCode(code string) (string, error) {
	if len(code) != 2 {
		return "", &ValidationError{Code: code, Reason: "must be exactly two letters"}
	}

	var out [2]rune
	for i := 0; i < 2; i++ {
		c := code[i]
		switch {
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		case c >= 'A' && c <= 'Z':
		default:
			return "", &ValidationError{Code: code, Reason: "must contain only ASCII letters"}
		}
		out[i] = rune(c) + RegionalIndicatorOffset
	}
	return string(out[:]), nil
}

// MustFromCountryCode is like FromCountryCode but panics on invalid input.
// Intended for constants and tests.
func MustFromCountryCode(code string) string {
	flag, err := FromCountryCode(code)
	if err != nil {
		panic(err)
	}
	return flag
}

// IsFlag reports whether s is empty or exactly two regional-indicator symbols.
func IsFlag(s string) bool {
	if s == "" {
		return true
	}
	if utf8.RuneCountInString(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < firstIndicator || r > lastIndicator {
			return false
		}
	}
	return true
}

// CountryCode reverses FromCountryCode. It returns false for anything that
// is not a two-symbol flag.
func CountryCode(flag string) (string, bool) {
	if flag == "" || !IsFlag(flag) {
		return "", false
	}
	code := make([]byte, 0, 2)
	for _, r := range flag {
		code = append(code, byte(r-RegionalIndicatorOffset))
	}
	return string(code), true
}
