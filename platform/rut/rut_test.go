package rut

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"testing"
)

// referenceDV is the well-known arithmetic formulation of the mod-11 digit.
func referenceDV(n int) string {
	m, s := 0, 1
	for ; n > 0; n /= 10 {
		s = (s + n%10*(9-m%6)) % 11
		m++
	}
	if s > 0 {
		return strconv.Itoa(s - 1)
	}
	return "K"
}

func TestNormalizeKnownValues(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"12.345.678-5", "12345678-5"},
		{"12345678-5", "12345678-5"},
		{" 11.111.111-1 ", "11111111-1"},
		{"10000013-k", "10000013-K"},
		{"10.000.013-K", "10000013-K"},
		{"10000004-0", "10000004-0"},
	}

	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"12345678",      // no check digit
		"1234567-4",     // short body
		"123456789-0",   // long body
		"12345678-4",    // wrong check digit
		"1234567K-5",    // K inside body
		"abc",
	} {
		if _, err := Normalize(in); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Normalize(%q) error = %v, want ErrInvalidFormat", in, err)
		}
	}
}

func TestCheckDigitMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		n := 10000000 + rng.Intn(89999999)
		body := strconv.Itoa(n)
		if got, want := CheckDigit(body), referenceDV(n); got != want {
			t.Fatalf("CheckDigit(%s) = %s, reference = %s", body, got, want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for n := 20000000; n < 20000300; n++ {
		body := strconv.Itoa(n)
		raw := fmt.Sprintf("%s.%s.%s-%s", body[:2], body[2:5], body[5:], CheckDigit(body))

		once, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", raw, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", once, err)
		}
		if once != twice {
			t.Fatalf("not idempotent: %q -> %q -> %q", raw, once, twice)
		}
	}
}
