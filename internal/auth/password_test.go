package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordPolicyReportsAllViolations(t *testing.T) {
	policy := NewPasswordPolicy(12)

	violations := policy.Validate("short")
	assert.Len(t, violations, 4) // length, uppercase, digit, symbol

	violations = policy.Validate("nouppercase1!aaaa")
	assert.Len(t, violations, 1)

	assert.Empty(t, policy.Validate("Str0ngPassw0rd!"))
}

func TestPasswordPolicyEachRule(t *testing.T) {
	policy := NewPasswordPolicy(12)

	cases := map[string]string{
		"NoDigitsHere!!aa": "must contain a digit",
		"nouppercase11!aa": "must contain an uppercase letter",
		"NOLOWERCASE11!AA": "must contain a lowercase letter",
		"NoSymbolHere11aa": "must contain a symbol",
	}
	for password, want := range cases {
		violations := policy.Validate(password)
		assert.Equal(t, []string{want}, violations, "password %q", password)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	policy := &PasswordPolicy{MinLength: 12, BcryptCost: bcrypt.MinCost}

	hash, err := policy.Hash("Str0ngPassw0rd!")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ngPassw0rd!", hash)

	assert.True(t, policy.Verify(hash, "Str0ngPassw0rd!"))
	assert.False(t, policy.Verify(hash, "WrongPassw0rd!!"))
}
