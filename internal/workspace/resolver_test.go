package workspace

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"access-service/internal/apperr"
	"access-service/internal/auth"
	"access-service/internal/model"
	"access-service/pkg/config"
	"access-service/pkg/database"
	"access-service/pkg/jwtutil"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testPassword = "Str0ngPassw0rd!"

type testEnv struct {
	db       *gorm.DB
	jwt      *jwtutil.JWTUtil
	auth     *auth.Service
	flags    *Flags
	resolver *Resolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	jwt := jwtutil.New(&config.JWTConfig{
		SigningKey: "test-signing-key",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	policy := &auth.PasswordPolicy{MinLength: 12, BcryptCost: bcrypt.MinCost}
	throttle := auth.NewThrottle(db, 15*time.Minute, 5)
	authSvc := auth.NewService(db, jwt, policy, throttle, 7*24*time.Hour, zap.NewNop())

	flags := NewFlags(db)
	resolver := NewResolver(db, flags, authSvc, zap.NewNop())
	authSvc.SetWorkspaceValidator(resolver)

	return &testEnv{db: db, jwt: jwt, auth: authSvc, flags: flags, resolver: resolver}
}

func (e *testEnv) registerTenant(t *testing.T, name, email string) *model.User {
	t.Helper()
	user, _, err := e.auth.RegisterTenant(name, email, testPassword)
	require.NoError(t, err)
	return user
}

func (e *testEnv) enableMultiWorkspace(t *testing.T) {
	t.Helper()
	require.NoError(t, e.flags.Set(model.FlagMultiWorkspace, nil, true))
}

func (e *testEnv) addMembership(t *testing.T, user *model.User, workspaceID uint, role string) {
	t.Helper()
	membership := model.WorkspaceMembership{
		UserID:      user.ID,
		WorkspaceID: workspaceID,
		Role:        role,
		JoinedAt:    time.Now(),
	}
	require.NoError(t, e.db.Create(&membership).Error)
}

func claimsFor(user *model.User) *jwtutil.UserClaims {
	return &jwtutil.UserClaims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Email:    user.Email,
		UserType: user.UserType,
		IsAdmin:  user.IsAdmin,
	}
}

func TestResolveFlagOffIgnoresSelector(t *testing.T) {
	env := newTestEnv(t)
	userA := env.registerTenant(t, "Acme", "a@acme.test")
	userB := env.registerTenant(t, "Beta", "b@beta.test")

	// Even a selector pointing at another workspace is ignored while the
	// flag is off.
	selected := userB.TenantID
	ctx, err := env.resolver.Resolve(claimsFor(userA), &selected)
	require.NoError(t, err)

	assert.Equal(t, userA.TenantID, ctx.WorkspaceID)
	assert.True(t, ctx.IsHome())
	assert.False(t, ctx.MultiWorkspace)
	assert.Nil(t, ctx.Membership)
}

func TestResolveDefaultsToHome(t *testing.T) {
	env := newTestEnv(t)
	env.enableMultiWorkspace(t)
	user := env.registerTenant(t, "Acme", "a@acme.test")

	ctx, err := env.resolver.Resolve(claimsFor(user), nil)
	require.NoError(t, err)

	assert.Equal(t, user.TenantID, ctx.WorkspaceID)
	assert.True(t, ctx.IsHome())
	assert.True(t, ctx.MultiWorkspace)
	assert.Nil(t, ctx.Membership)
}

func TestResolveRejectsNonMember(t *testing.T) {
	env := newTestEnv(t)
	env.enableMultiWorkspace(t)
	userA := env.registerTenant(t, "Acme", "a@acme.test")
	userB := env.registerTenant(t, "Beta", "b@beta.test")

	selected := userB.TenantID
	_, err := env.resolver.Resolve(claimsFor(userA), &selected)
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	var denied model.WorkspaceActivity
	require.NoError(t, env.db.
		Where("workspace_id = ? AND user_id = ? AND action = ?", userB.TenantID, userA.ID, model.ActivityAccessDenied).
		First(&denied).Error)
}

func TestResolveWithMembership(t *testing.T) {
	env := newTestEnv(t)
	env.enableMultiWorkspace(t)
	userA := env.registerTenant(t, "Acme", "a@acme.test")
	userB := env.registerTenant(t, "Beta", "b@beta.test")
	env.addMembership(t, userA, userB.TenantID, model.WorkspaceRoleMember)

	selected := userB.TenantID
	ctx, err := env.resolver.Resolve(claimsFor(userA), &selected)
	require.NoError(t, err)

	assert.Equal(t, userB.TenantID, ctx.WorkspaceID)
	assert.False(t, ctx.IsHome())
	require.NotNil(t, ctx.Membership)
	assert.Equal(t, model.WorkspaceRoleMember, ctx.Membership.Role)
	assert.NotNil(t, ctx.Membership.LastAccessedAt)
}

func TestResolveLoadsHomeMembership(t *testing.T) {
	env := newTestEnv(t)
	env.enableMultiWorkspace(t)
	user := env.registerTenant(t, "Acme", "a@acme.test")
	env.addMembership(t, user, user.TenantID, model.WorkspaceRoleAdmin)

	// A membership row in the home workspace is honored, not skipped.
	ctx, err := env.resolver.Resolve(claimsFor(user), nil)
	require.NoError(t, err)

	assert.True(t, ctx.IsHome())
	require.NotNil(t, ctx.Membership)
	assert.Equal(t, model.WorkspaceRoleAdmin, ctx.Membership.Role)
}

func TestResolveSelectorBeatsClaim(t *testing.T) {
	env := newTestEnv(t)
	env.enableMultiWorkspace(t)
	userA := env.registerTenant(t, "Acme", "a@acme.test")
	userB := env.registerTenant(t, "Beta", "b@beta.test")
	env.addMembership(t, userA, userB.TenantID, model.WorkspaceRoleMember)

	claims := claimsFor(userA)
	claimed := userB.TenantID
	claims.ActiveWorkspaceID = &claimed

	// Without a selector the claim wins.
	ctx, err := env.resolver.Resolve(claims, nil)
	require.NoError(t, err)
	assert.Equal(t, userB.TenantID, ctx.WorkspaceID)

	// With a selector, the selector wins over the claim.
	selected := userA.TenantID
	ctx, err = env.resolver.Resolve(claims, &selected)
	require.NoError(t, err)
	assert.Equal(t, userA.TenantID, ctx.WorkspaceID)
}

func TestClaimStillValid(t *testing.T) {
	env := newTestEnv(t)
	userA := env.registerTenant(t, "Acme", "a@acme.test")
	userB := env.registerTenant(t, "Beta", "b@beta.test")

	// Flag off: nothing is valid.
	assert.False(t, env.resolver.ClaimStillValid(userA.ID, userA.TenantID, userA.TenantID))

	env.enableMultiWorkspace(t)
	assert.True(t, env.resolver.ClaimStillValid(userA.ID, userA.TenantID, userA.TenantID))
	assert.False(t, env.resolver.ClaimStillValid(userA.ID, userA.TenantID, userB.TenantID))

	env.addMembership(t, userA, userB.TenantID, model.WorkspaceRoleMember)
	assert.True(t, env.resolver.ClaimStillValid(userA.ID, userA.TenantID, userB.TenantID))
}

func TestSwitchRequiresFlag(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerTenant(t, "Acme", "a@acme.test")

	_, err := env.resolver.Switch(user, user.TenantID)
	assert.ErrorIs(t, err, apperr.ErrFeatureDisabled)
}

func TestSwitchRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	env.enableMultiWorkspace(t)
	userA := env.registerTenant(t, "Acme", "a@acme.test")
	userB := env.registerTenant(t, "Beta", "b@beta.test")

	_, err := env.resolver.Switch(userA, userB.TenantID)
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)
}

func TestSwitchEmbedsWorkspaceInTokens(t *testing.T) {
	env := newTestEnv(t)
	env.enableMultiWorkspace(t)
	userA := env.registerTenant(t, "Acme", "a@acme.test")
	userB := env.registerTenant(t, "Beta", "b@beta.test")
	env.addMembership(t, userA, userB.TenantID, model.WorkspaceRoleMember)

	pair, err := env.resolver.Switch(userA, userB.TenantID)
	require.NoError(t, err)

	claims, err := env.jwt.ValidateToken(pair.AccessToken, jwtutil.KindAccess)
	require.NoError(t, err)
	require.NotNil(t, claims.ActiveWorkspaceID)
	assert.Equal(t, userB.TenantID, *claims.ActiveWorkspaceID)

	var audit model.WorkspaceActivity
	require.NoError(t, env.db.
		Where("workspace_id = ? AND user_id = ? AND action = ?", userB.TenantID, userA.ID, model.ActivitySwitch).
		First(&audit).Error)
}

func TestListIncludesHomeAndMemberships(t *testing.T) {
	env := newTestEnv(t)
	userA := env.registerTenant(t, "Acme", "a@acme.test")
	userB := env.registerTenant(t, "Beta", "b@beta.test")
	env.addMembership(t, userA, userB.TenantID, model.WorkspaceRoleViewer)

	entries, err := env.resolver.List(userA)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.True(t, entries[0].IsHome)
	assert.Equal(t, "Acme", entries[0].Name)
	assert.Equal(t, model.WorkspaceRoleAdmin, entries[0].Role)

	assert.False(t, entries[1].IsHome)
	assert.Equal(t, "Beta", entries[1].Name)
	assert.Equal(t, model.WorkspaceRoleViewer, entries[1].Role)
}

func TestCreateWorkspaceMakesOwner(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerTenant(t, "Acme", "a@acme.test")

	created, err := env.resolver.Create(user, "Side Project")
	require.NoError(t, err)
	assert.Equal(t, user.ID, created.OwnerID)

	var membership model.WorkspaceMembership
	require.NoError(t, env.db.
		Where("user_id = ? AND workspace_id = ?", user.ID, created.ID).
		First(&membership).Error)
	assert.Equal(t, model.WorkspaceRoleOwner, membership.Role)
}

func TestRemoveMemberRevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	env.enableMultiWorkspace(t)
	userA := env.registerTenant(t, "Acme", "a@acme.test")
	userB := env.registerTenant(t, "Beta", "b@beta.test")
	env.addMembership(t, userA, userB.TenantID, model.WorkspaceRoleMember)

	// userA holds a live session from registration.
	var tokens int64
	require.NoError(t, env.db.Model(&model.RefreshToken{}).Where("user_id = ?", userA.ID).Count(&tokens).Error)
	require.NotZero(t, tokens)

	require.NoError(t, env.resolver.RemoveMember(userB.TenantID, userA.ID))

	require.NoError(t, env.db.Model(&model.RefreshToken{}).Where("user_id = ?", userA.ID).Count(&tokens).Error)
	assert.Zero(t, tokens)

	err := env.resolver.RemoveMember(userB.TenantID, userA.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
