package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost          = 12 // Fixed adaptive cost factor
	DefaultMinLength    = 8
	DefaultMaxLength    = 128
	maxRepeatRunLen     = 3 // A character repeated more than this consecutively is banned
	requiredCharClasses = 3
)

// PolicyConfig holds the tunable bounds of the password policy
type PolicyConfig struct {
	MinLength int
	MaxLength int
}

// DefaultPolicyConfig returns the standard bounds
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{MinLength: DefaultMinLength, MaxLength: DefaultMaxLength}
}

// PasswordValidationError holds validation error details (internal use only)
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	// Return a generic error to users - never expose which rule failed to
	// prevent enumeration of the policy
	return "invalid password"
}

// Common password prefixes to reject. A password beginning with any of these
// is banned outright regardless of what follows.
var commonPrefixes = []string{
	"password",
	"123456",
	"12345678",
	"qwerty",
	"letmein",
	"welcome",
	"admin",
	"iloveyou",
	"monkey",
	"dragon",
	"abc123",
	"football",
	"princess",
	"sunshine",
	"trustno1",
}

// Policy validates password strength and wraps the one-way hash primitive
type Policy struct {
	config PolicyConfig
}

// NewPolicy creates a password policy with the given bounds
func NewPolicy(config PolicyConfig) *Policy {
	if config.MinLength <= 0 {
		config.MinLength = DefaultMinLength
	}
	if config.MaxLength <= 0 {
		config.MaxLength = DefaultMaxLength
	}
	return &Policy{config: config}
}

// Validate enforces the password policy. It fails when the password is out of
// the length bounds, matches a banned pattern (long character run, common
// prefix, or a short cycle filling the whole string), or covers fewer than
// three of the four character classes.
func (p *Policy) Validate(password string) error {
	errs := make([]string, 0)

	if len(password) < p.config.MinLength {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", p.config.MinLength))
	}
	if len(password) > p.config.MaxLength {
		errs = append(errs, fmt.Sprintf("must be at most %d characters", p.config.MaxLength))
	}

	if hasLongRepeatRun(password) {
		errs = append(errs, "must not repeat a character more than 3 times in a row")
	}
	if hasCommonPrefix(password) {
		errs = append(errs, "must not start with a common password")
	}
	if isShortCycle(password) {
		errs = append(errs, "must not be a short sequence repeated over and over")
	}

	if countCharClasses(password) < requiredCharClasses {
		errs = append(errs, "must contain at least 3 of: lowercase, uppercase, digits, special characters")
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}
	return nil
}

// Hash runs the password through bcrypt at the fixed cost factor
func (p *Policy) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify compares a candidate password against a stored hash. bcrypt performs
// the comparison in constant time.
func (p *Policy) Verify(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// CalculateStrength scores a password 0-6 and returns improvement feedback.
// The score is UI guidance only and is independent of Validate: a password
// can score points while still being rejected by policy.
func (p *Policy) CalculateStrength(password string) (int, []string) {
	score := 0
	feedback := make([]string, 0)

	if len(password) >= 8 {
		score++
	} else {
		feedback = append(feedback, "use at least 8 characters")
	}
	if len(password) >= 12 {
		score++
	} else {
		feedback = append(feedback, "longer passwords are stronger; aim for 12 or more")
	}

	hasLower, hasUpper, hasDigit, hasSpecial := charClasses(password)
	if hasLower && hasUpper {
		score++
	} else {
		feedback = append(feedback, "mix uppercase and lowercase letters")
	}
	if hasDigit {
		score++
	} else {
		feedback = append(feedback, "add digits")
	}
	if hasSpecial {
		score++
	} else {
		feedback = append(feedback, "add special characters")
	}

	if !hasLongRepeatRun(password) && !hasCommonPrefix(password) && !isShortCycle(password) {
		score++
	} else {
		feedback = append(feedback, "avoid repeated sequences and common passwords")
	}

	return score, feedback
}

// hasLongRepeatRun reports whether any character repeats more than
// maxRepeatRunLen times consecutively.
func hasLongRepeatRun(password string) bool {
	run := 0
	var prev rune
	for i, r := range password {
		if i > 0 && r == prev {
			run++
			if run > maxRepeatRunLen {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}

// hasCommonPrefix reports whether the password begins with a known-common
// password, case-insensitively.
func hasCommonPrefix(password string) bool {
	lowered := strings.ToLower(password)
	for _, prefix := range commonPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}

// isShortCycle reports whether the whole password is a short substring
// repeated to fill it, e.g. "abcabcabc" or "121212".
func isShortCycle(password string) bool {
	n := len(password)
	for period := 1; period <= n/2; period++ {
		if n%period != 0 {
			continue
		}
		if strings.Repeat(password[:period], n/period) == password {
			return true
		}
	}
	return false
}

func charClasses(password string) (hasLower, hasUpper, hasDigit, hasSpecial bool) {
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return
}

func countCharClasses(password string) int {
	hasLower, hasUpper, hasDigit, hasSpecial := charClasses(password)
	count := 0
	for _, present := range []bool{hasLower, hasUpper, hasDigit, hasSpecial} {
		if present {
			count++
		}
	}
	return count
}
