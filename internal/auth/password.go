package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const passwordSymbols = `!@#$%^&*()_+-=[]{};':",.<>/?|~` + "`"

// PasswordPolicy validates new passwords and hashes accepted ones.
type PasswordPolicy struct {
	MinLength  int
	BcryptCost int
}

// NewPasswordPolicy returns the platform policy with the given bcrypt cost.
func NewPasswordPolicy(bcryptCost int) *PasswordPolicy {
	if bcryptCost < bcrypt.DefaultCost {
		bcryptCost = 12
	}
	return &PasswordPolicy{MinLength: 12, BcryptCost: bcryptCost}
}

// Validate returns every violated rule, not just the first, so callers can
// present complete feedback.
func (p *PasswordPolicy) Validate(password string) []string {
	var violations []string

	if len(password) < p.MinLength {
		violations = append(violations, "must be at least 12 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, "must contain an uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "must contain a lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "must contain a digit")
	}
	if !hasSymbol {
		violations = append(violations, "must contain a symbol")
	}

	return violations
}

// Hash hashes the password with the configured work factor.
func (p *PasswordPolicy) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify compares a candidate password against the stored hash.
func (p *PasswordPolicy) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
