package password

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/starford/mindmaps/internal/apperr"
)

// DefaultMinLength is the minimum password length when none is configured.
const DefaultMinLength = 8

// Policy is the password strength predicate applied on signup and reset.
type Policy struct {
	MinLength int
}

// Check returns a *apperr.ValidationError naming the first unmet rule.
// Rules are checked in order: length, uppercase, lowercase, digit.
func (p Policy) Check(pw string) error {
	minLen := p.MinLength
	if minLen <= 0 {
		minLen = DefaultMinLength
	}
	if utf8.RuneCountInString(pw) < minLen {
		return apperr.Validation("password", fmt.Sprintf("must be at least %d characters", minLen))
	}

	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return apperr.Validation("password", "must contain at least one uppercase letter")
	case !lower:
		return apperr.Validation("password", "must contain at least one lowercase letter")
	case !digit:
		return apperr.Validation("password", "must contain at least one digit")
	}
	return nil
}
