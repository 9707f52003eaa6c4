// Package phone provides Chilean phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	defaultRegion = "CL"
	countryCode   = "56"
	e164Digits    = 11
)

// ErrInvalidFormat is returned when the input cannot be turned into a +56 number.
var ErrInvalidFormat = errors.New("phone: formato inválido")

// NormalizeCL returns the number as "+56XXXXXXXXX".
// Non-digits are dropped. A leading country code is kept, a trunk prefix of zeros
// is replaced by it, and anything else gets the country code prepended.
func NormalizeCL(input string) (string, error) {
	digits := onlyDigits(input)
	if digits == "" {
		return "", ErrInvalidFormat
	}

	switch {
	case strings.HasPrefix(digits, countryCode):
	case strings.HasPrefix(digits, "0"):
		digits = countryCode + strings.TrimLeft(digits, "0")
	default:
		digits = countryCode + digits
	}

	if len(digits) != e164Digits {
		return "", ErrInvalidFormat
	}
	return "+" + digits, nil
}

// Display formats a normalized number for humans, e.g. "+56 9 1234 5678".
// If parsing fails, it returns the input unchanged.
func Display(e164 string) string {
	number, err := phonenumbers.Parse(e164, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return e164
	}
	return phonenumbers.Format(number, phonenumbers.INTERNATIONAL)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
