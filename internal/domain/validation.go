package domain

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxDescriptionWords caps event and session descriptions.
const MaxDescriptionWords = 500

// MinPasswordLength is counted in runes.
const MinPasswordLength = 8

var (
	emailRegexp    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	fullNameRegexp = regexp.MustCompile(`^\p{L}+(\s+\p{L}+)+$`)
	yearRegexp     = regexp.MustCompile(`20\d\d`)
)

// ValidateTitle requires a non-blank title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return Validationf("title is required")
	}
	return nil
}

// ValidateDescription caps the description at MaxDescriptionWords whitespace-separated words.
func ValidateDescription(desc string) error {
	if n := len(strings.Fields(desc)); n > MaxDescriptionWords {
		return Validationf("description must have at most %d words, got %d", MaxDescriptionWords, n)
	}
	return nil
}

// ValidateEmail checks the address shape. Case is preserved.
func ValidateEmail(email string) error {
	if !emailRegexp.MatchString(email) {
		return Validationf("invalid email format")
	}
	return nil
}

// ValidateFullName requires at least two letter-only tokens.
func ValidateFullName(name string) error {
	if !fullNameRegexp.MatchString(strings.TrimSpace(name)) {
		return Validationf("full name must contain at least two words of letters only")
	}
	return nil
}

// ValidatePassword enforces length, character classes and the no-year rule.
func ValidatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return Validationf("password must have at least %d characters", MinPasswordLength)
	}
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	switch {
	case !upper:
		return Validationf("password must contain an uppercase letter")
	case !lower:
		return Validationf("password must contain a lowercase letter")
	case !digit:
		return Validationf("password must contain a digit")
	case !symbol:
		return Validationf("password must contain a symbol")
	}
	if yearRegexp.MatchString(pw) {
		return Validationf("password must not contain a year")
	}
	return nil
}

// RequireKeys fails when any key is absent from m. field names the map in the message.
func RequireKeys(field string, m map[string]any, keys ...string) error {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return Validationf("%s must contain %q", field, k)
		}
	}
	return nil
}
