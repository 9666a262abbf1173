package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// bcrypt reads at most 72 bytes of input, so longer passwords are
// rejected up front instead of being silently truncated.
const passwordMaxLength = 72

// commonWords may not appear anywhere inside a password, case-insensitively
var commonWords = []string{"password", "qwerty", "admin", "user", "login", "letmein"}

// commonPasswords are rejected outright
var commonPasswords = map[string]struct{}{
	"123456":    {},
	"1234567":   {},
	"12345678":  {},
	"123456789": {},
}

// PasswordPolicy validates candidate passwords at registration time.
// MinLength comes from config; everything else is fixed.
type PasswordPolicy struct {
	MinLength int
}

// Validate returns nil for an acceptable password, otherwise an error
// wrapping ErrWeakPassword with the first failed requirement.
func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, p.MinLength)
	}
	if len(password) > passwordMaxLength {
		return fmt.Errorf("%w: must be at most %d characters", ErrWeakPassword, passwordMaxLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	switch {
	case !hasUpper:
		return fmt.Errorf("%w: must contain an uppercase letter", ErrWeakPassword)
	case !hasLower:
		return fmt.Errorf("%w: must contain a lowercase letter", ErrWeakPassword)
	case !hasDigit:
		return fmt.Errorf("%w: must contain a digit", ErrWeakPassword)
	case !hasSpecial:
		return fmt.Errorf("%w: must contain a special character", ErrWeakPassword)
	}

	lower := strings.ToLower(password)
	if _, ok := commonPasswords[lower]; ok {
		return fmt.Errorf("%w: too common", ErrWeakPassword)
	}
	for _, word := range commonWords {
		if strings.Contains(lower, word) {
			return fmt.Errorf("%w: must not contain %q", ErrWeakPassword, word)
		}
	}

	if hasLongRun(password) {
		return fmt.Errorf("%w: must not repeat a character more than 3 times in a row", ErrWeakPassword)
	}
	return nil
}

// hasLongRun reports a run of more than three identical consecutive runes
func hasLongRun(s string) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run > 3 {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
