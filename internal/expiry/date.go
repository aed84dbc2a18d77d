// Package expiry normalizes operator-typed expiry dates to ISO form.
package expiry

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	slashPattern   = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{2,4})$`)
	digits8Pattern = regexp.MustCompile(`^(\d{2})(\d{2})(\d{4})$`)
	digits6Pattern = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})$`)
)

// Normalize converts a typed date to "YYYY-MM-DD".
// It tries each accepted format in order:
//
//	DD/MM/YYYY or DD/MM/YY
//	DDMMYYYY
//	DDMMYY
//
// Two-digit years are assumed to be 20xx. Returns false if no format
// matches or the date does not exist on the calendar.
func Normalize(input string) (string, bool) {
	input = strings.TrimSpace(input)

	if norm, ok := trySlash(input); ok {
		return norm, true
	}
	if norm, ok := try8Digits(input); ok {
		return norm, true
	}
	if norm, ok := try6Digits(input); ok {
		return norm, true
	}
	return "", false
}

// trySlash matches DD/MM/YYYY and DD/MM/YY.
func trySlash(input string) (string, bool) {
	m := slashPattern.FindStringSubmatch(input)
	if m == nil {
		return "", false
	}
	day, month, year := m[1], m[2], m[3]
	if len(year) == 2 {
		year = "20" + year
	}
	return validate(year, month, day)
}

// try8Digits matches DDMMYYYY.
func try8Digits(input string) (string, bool) {
	m := digits8Pattern.FindStringSubmatch(input)
	if m == nil {
		return "", false
	}
	return validate(m[3], m[2], m[1])
}

// try6Digits matches DDMMYY.
func try6Digits(input string) (string, bool) {
	m := digits6Pattern.FindStringSubmatch(input)
	if m == nil {
		return "", false
	}
	return validate("20"+m[3], m[2], m[1])
}

// validate checks the date against the calendar and returns the ISO form.
func validate(year, month, day string) (string, bool) {
	iso := fmt.Sprintf("%s-%s-%s", year, month, day)
	if _, err := time.Parse("2006-01-02", iso); err != nil {
		return "", false
	}
	return iso, true
}
