package domain

import (
	"fmt"
	"strings"
)

// ISBN is a validated International Standard Book Number.
// The zero value is invalid; use ParseISBN to construct one.
// The stored form is the bare digit string with separators stripped.
type ISBN struct {
	value string
}

// ParseISBN validates and normalizes a raw ISBN string.
// Hyphens and spaces are stripped before validation. The result must be
// either 10 characters (digits, trailing X allowed as the check digit) or
// 13 digits, and the checksum must verify.
func ParseISBN(raw string) (ISBN, error) {
	if strings.TrimSpace(raw) == "" {
		return ISBN{}, NewValidationError("isbn", "cannot be empty", ErrValidation)
	}

	cleaned := strings.NewReplacer("-", "", " ", "").Replace(raw)

	switch len(cleaned) {
	case 10:
		if !isISBN10Shape(cleaned) {
			return ISBN{}, ErrInvalidISBNFormat
		}
		if !validISBN10Checksum(cleaned) {
			return ISBN{}, ErrInvalidISBNChecksum
		}
	case 13:
		if !allDigits(cleaned) {
			return ISBN{}, ErrInvalidISBNFormat
		}
		if !validISBN13Checksum(cleaned) {
			return ISBN{}, ErrInvalidISBNChecksum
		}
	default:
		return ISBN{}, ErrInvalidISBNFormat
	}

	return ISBN{value: cleaned}, nil
}

// String returns the canonical stored form: bare digits, no separators.
func (i ISBN) String() string {
	return i.value
}

// IsZero reports whether the ISBN is the unvalidated zero value.
func (i ISBN) IsZero() bool {
	return i.value == ""
}

// Formatted renders the grouped-hyphen display form: four groups for
// ISBN-10, five groups for ISBN-13. Purely presentational; the canonical
// form remains the bare digit string.
func (i ISBN) Formatted() string {
	if len(i.value) == 10 {
		return fmt.Sprintf("%s-%s-%s-%s",
			i.value[0:1], i.value[1:5], i.value[5:9], i.value[9:])
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		i.value[0:3], i.value[3:4], i.value[4:9], i.value[9:12], i.value[12:])
}

// MarshalText serializes the ISBN as its canonical digit string.
func (i ISBN) MarshalText() ([]byte, error) {
	return []byte(i.value), nil
}

// UnmarshalText parses and validates an ISBN from its textual form.
func (i *ISBN) UnmarshalText(text []byte) error {
	parsed, err := ParseISBN(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isISBN10Shape allows nine digits followed by a digit or a literal X
// check digit.
func isISBN10Shape(s string) bool {
	if !allDigits(s[:9]) {
		return false
	}
	last := s[9]
	return (last >= '0' && last <= '9') || last == 'X'
}

// validISBN10Checksum verifies the weighted sum over all ten positions:
// digit[i]*(10-i) for i=0..8 plus the check digit (X counts as 10) must be
// divisible by 11.
func validISBN10Checksum(s string) bool {
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(s[i]-'0') * (10 - i)
	}
	if s[9] == 'X' {
		sum += 10
	} else {
		sum += int(s[9] - '0')
	}
	return sum%11 == 0
}

// validISBN13Checksum verifies the alternating 1,3 weighted sum over the
// first twelve digits against the thirteenth.
func validISBN13Checksum(s string) bool {
	sum := 0
	for i := 0; i < 12; i++ {
		digit := int(s[i] - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	check := (10 - sum%10) % 10
	return int(s[12]-'0') == check
}
