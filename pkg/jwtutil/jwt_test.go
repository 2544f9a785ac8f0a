package jwtutil

import (
	"testing"
	"time"

	"access-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUtil(accessTTL time.Duration) *JWTUtil {
	return New(&config.JWTConfig{
		SigningKey: "test-signing-key",
		AccessTTL:  accessTTL,
		RefreshTTL: 7 * 24 * time.Hour,
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	util := newTestUtil(15 * time.Minute)

	workspaceID := uint(42)
	claims := UserClaims{
		UserID:            1,
		TenantID:          2,
		Email:             "user@example.test",
		UserType:          "team_member",
		ActiveWorkspaceID: &workspaceID,
	}

	token, err := util.GenerateAccessToken(claims)
	require.NoError(t, err)

	parsed, err := util.ValidateToken(token, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(1), parsed.UserID)
	assert.Equal(t, uint(2), parsed.TenantID)
	assert.Equal(t, "user@example.test", parsed.Email)
	assert.Equal(t, KindAccess, parsed.Kind)
	require.NotNil(t, parsed.ActiveWorkspaceID)
	assert.Equal(t, uint(42), *parsed.ActiveWorkspaceID)
}

func TestValidateRejectsKindMismatch(t *testing.T) {
	util := newTestUtil(15 * time.Minute)

	access, err := util.GenerateAccessToken(UserClaims{UserID: 1})
	require.NoError(t, err)
	refresh, err := util.GenerateRefreshToken(UserClaims{UserID: 1})
	require.NoError(t, err)

	_, err = util.ValidateToken(access, KindRefresh)
	assert.Error(t, err)
	_, err = util.ValidateToken(refresh, KindAccess)
	assert.Error(t, err)
}

func TestValidateRejectsForeignKey(t *testing.T) {
	util := newTestUtil(15 * time.Minute)
	other := New(&config.JWTConfig{SigningKey: "different-key", AccessTTL: 15 * time.Minute})

	token, err := other.GenerateAccessToken(UserClaims{UserID: 1})
	require.NoError(t, err)

	_, err = util.ValidateToken(token, KindAccess)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	util := newTestUtil(-time.Minute)

	token, err := util.GenerateAccessToken(UserClaims{UserID: 1})
	require.NoError(t, err)

	_, err = util.ValidateToken(token, KindAccess)
	assert.Error(t, err)
}
