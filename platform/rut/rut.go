// Package rut validates and formats Chilean RUT tax identifiers.
// This is part of the platform layer and contains no business logic.
package rut

import (
	"errors"
	"strings"
)

// ErrInvalidFormat is returned for input that is not a well-formed RUT.
var ErrInvalidFormat = errors.New("rut: formato inválido")

// bodyLen is the fixed number of digits before the check character.
const bodyLen = 8

// Normalize strips punctuation from raw and returns the canonical "########-D" form.
// The check character must match the mod-11 digit computed from the body.
func Normalize(raw string) (string, error) {
	cleaned := clean(raw)
	if len(cleaned) != bodyLen+1 {
		return "", ErrInvalidFormat
	}

	body, dv := cleaned[:bodyLen], cleaned[bodyLen:]
	for _, r := range body {
		if r < '0' || r > '9' {
			return "", ErrInvalidFormat
		}
	}

	if CheckDigit(body) != dv {
		return "", ErrInvalidFormat
	}
	return Format(body, dv), nil
}

// Valid reports whether raw normalizes without error.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

// CheckDigit computes the mod-11 check character for a numeric body.
// Weights 2..7 are applied cyclically starting at the least significant digit.
func CheckDigit(body string) string {
	sum := 0
	weight := 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}

	switch d := 11 - sum%11; d {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return string(rune('0' + d))
	}
}

// Format joins body and check character as "########-D".
func Format(body, dv string) string {
	return body + "-" + strings.ToUpper(dv)
}

func clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'k' || r == 'K':
			b.WriteByte('K')
		}
	}
	return b.String()
}
