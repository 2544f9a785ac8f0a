package invitation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"access-service/internal/apperr"
	"access-service/internal/auth"
	"access-service/internal/billing"
	"access-service/internal/mailer"
	"access-service/internal/model"
	"access-service/internal/permission"
	"access-service/internal/workspace"
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
	db   *gorm.DB
	auth *auth.Service
	svc  *Service
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

	gate := billing.NewGate(db)
	mail := mailer.NewConsoleSender(zap.NewNop(), "test@local")
	svc := NewService(db, gate, authSvc, mail, 7*24*time.Hour, zap.NewNop())

	return &testEnv{db: db, auth: authSvc, svc: svc}
}

func (e *testEnv) registerTenant(t *testing.T, name, email string) *model.User {
	t.Helper()
	user, _, err := e.auth.RegisterTenant(name, email, testPassword)
	require.NoError(t, err)
	return user
}

func TestCreateInvitation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	invitation, snapshot, err := env.svc.Create(admin, admin.TenantID, "New@Member.Test", model.WorkspaceRoleMember)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.Equal(t, model.InvitationPending, invitation.Status)
	assert.Equal(t, "new@member.test", invitation.Email)
	assert.Len(t, invitation.Token, 64)
	assert.True(t, invitation.ExpiresAt.After(time.Now()))

	var audit model.WorkspaceActivity
	require.NoError(t, env.db.
		Where("workspace_id = ? AND action = ?", admin.TenantID, model.ActivityInvitationSent).
		First(&audit).Error)
}

func TestCreateRejectsDuplicatePending(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	_, _, err := env.svc.Create(admin, admin.TenantID, "new@member.test", model.WorkspaceRoleMember)
	require.NoError(t, err)

	_, _, err = env.svc.Create(admin, admin.TenantID, "new@member.test", model.WorkspaceRoleMember)
	assert.Error(t, err)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	_, _, err := env.svc.Create(admin, admin.TenantID, "new@member.test", model.WorkspaceRoleOwner)
	assert.Error(t, err)

	_, _, err = env.svc.Create(admin, admin.TenantID, "new@member.test", "superuser")
	assert.Error(t, err)
}

func TestCreateIsSeatGated(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	plan := model.WorkspacePlan{
		Name:              "Solo",
		MaxMembers:        1,
		MaxAutomations:    model.Unlimited,
		MaxEmailsPerMonth: model.Unlimited,
		MaxProposals:      model.Unlimited,
		MaxStorageMB:      model.Unlimited,
	}
	require.NoError(t, env.db.Create(&plan).Error)
	sub := model.WorkspaceSubscription{WorkspaceID: admin.TenantID, PlanID: plan.ID, Status: model.SubscriptionActive}
	require.NoError(t, env.db.Create(&sub).Error)

	membership := model.WorkspaceMembership{
		UserID:      admin.ID,
		WorkspaceID: admin.TenantID,
		Role:        model.WorkspaceRoleOwner,
		JoinedAt:    time.Now(),
	}
	require.NoError(t, env.db.Create(&membership).Error)

	_, snapshot, err := env.svc.Create(admin, admin.TenantID, "new@member.test", model.WorkspaceRoleMember)
	assert.ErrorIs(t, err, apperr.ErrLimitExceeded)
	require.NotNil(t, snapshot)
	assert.Equal(t, 1, snapshot.Checks[billing.DimMembers].Used)
}

func TestAcceptCreatesUserAndMembership(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	invitation, _, err := env.svc.Create(admin, admin.TenantID, "new@member.test", model.WorkspaceRoleMember)
	require.NoError(t, err)

	membership, err := env.svc.Accept(invitation.Token, testPassword)
	require.NoError(t, err)
	assert.Equal(t, admin.TenantID, membership.WorkspaceID)
	assert.Equal(t, model.WorkspaceRoleMember, membership.Role)
	require.NotNil(t, membership.InvitedBy)
	assert.Equal(t, admin.ID, *membership.InvitedBy)

	var user model.User
	require.NoError(t, env.db.Where("email = ?", "new@member.test").First(&user).Error)
	assert.Equal(t, model.UserTypeTeamMember, user.UserType)
	assert.True(t, user.Active)

	var reloaded model.Invitation
	require.NoError(t, env.db.First(&reloaded, invitation.ID).Error)
	assert.Equal(t, model.InvitationAccepted, reloaded.Status)
	assert.NotNil(t, reloaded.AcceptedAt)
}

func TestAcceptNewUserRequiresPassword(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	invitation, _, err := env.svc.Create(admin, admin.TenantID, "new@member.test", model.WorkspaceRoleMember)
	require.NoError(t, err)

	_, err = env.svc.Accept(invitation.Token, "")
	assert.Error(t, err)

	// The failed transaction left the invitation pending.
	var reloaded model.Invitation
	require.NoError(t, env.db.First(&reloaded, invitation.ID).Error)
	assert.Equal(t, model.InvitationPending, reloaded.Status)
}

func TestAcceptExistingUserNeedsNoPassword(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")
	other := env.registerTenant(t, "Beta", "b@beta.test")

	invitation, _, err := env.svc.Create(admin, admin.TenantID, "b@beta.test", model.WorkspaceRoleViewer)
	require.NoError(t, err)

	membership, err := env.svc.Accept(invitation.Token, "")
	require.NoError(t, err)
	assert.Equal(t, other.ID, membership.UserID)
	assert.Equal(t, model.WorkspaceRoleViewer, membership.Role)
}

func TestAcceptedAdminGainsWorkspaceAccess(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	flags := workspace.NewFlags(env.db)
	require.NoError(t, flags.Set(model.FlagMultiWorkspace, nil, true))
	resolver := workspace.NewResolver(env.db, flags, env.auth, zap.NewNop())
	checker := permission.NewChecker(env.db)

	invitation, _, err := env.svc.Create(admin, admin.TenantID, "bob@acme.test", model.WorkspaceRoleAdmin)
	require.NoError(t, err)

	membership, err := env.svc.Accept(invitation.Token, testPassword)
	require.NoError(t, err)
	assert.Equal(t, model.WorkspaceRoleAdmin, membership.Role)

	// The new account's home tenant is the invited workspace; resolution
	// must surface the membership so the invited role applies.
	var bob model.User
	require.NoError(t, env.db.Where("email = ?", "bob@acme.test").First(&bob).Error)
	require.Equal(t, admin.TenantID, bob.TenantID)

	ctx, err := resolver.Resolve(&jwtutil.UserClaims{
		UserID:   bob.ID,
		TenantID: bob.TenantID,
		Email:    bob.Email,
		UserType: bob.UserType,
	}, nil)
	require.NoError(t, err)
	assert.True(t, ctx.IsHome())
	require.NotNil(t, ctx.Membership)

	set, err := checker.For(&bob, ctx)
	require.NoError(t, err)
	assert.True(t, set.Can(model.ModuleClients, model.ActionView))
	assert.True(t, set.Can(model.ModuleSettings, model.ActionManage))
}

func TestAcceptIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	invitation, _, err := env.svc.Create(admin, admin.TenantID, "new@member.test", model.WorkspaceRoleMember)
	require.NoError(t, err)

	first, err := env.svc.Accept(invitation.Token, testPassword)
	require.NoError(t, err)

	second, err := env.svc.Accept(invitation.Token, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var rows int64
	require.NoError(t, env.db.Model(&model.WorkspaceMembership{}).
		Where("workspace_id = ?", admin.TenantID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestAcceptUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Accept("no-such-token", testPassword)
	assert.ErrorIs(t, err, apperr.ErrInvitationInvalid)
}

func TestAcceptExpiredMarksExpired(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	invitation, _, err := env.svc.Create(admin, admin.TenantID, "new@member.test", model.WorkspaceRoleMember)
	require.NoError(t, err)

	require.NoError(t, env.db.Model(invitation).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err = env.svc.Accept(invitation.Token, testPassword)
	assert.ErrorIs(t, err, apperr.ErrInvitationInvalid)

	var reloaded model.Invitation
	require.NoError(t, env.db.First(&reloaded, invitation.ID).Error)
	assert.Equal(t, model.InvitationExpired, reloaded.Status)
}

func TestDeclineOnlyFromPending(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	invitation, _, err := env.svc.Create(admin, admin.TenantID, "new@member.test", model.WorkspaceRoleMember)
	require.NoError(t, err)

	require.NoError(t, env.svc.Decline(invitation.Token))

	var reloaded model.Invitation
	require.NoError(t, env.db.First(&reloaded, invitation.ID).Error)
	assert.Equal(t, model.InvitationDeclined, reloaded.Status)

	// A declined invitation cannot be declined again or accepted.
	assert.ErrorIs(t, env.svc.Decline(invitation.Token), apperr.ErrInvitationInvalid)
	_, err = env.svc.Accept(invitation.Token, testPassword)
	assert.ErrorIs(t, err, apperr.ErrInvitationInvalid)
}

func TestRevoke(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	invitation, _, err := env.svc.Create(admin, admin.TenantID, "new@member.test", model.WorkspaceRoleMember)
	require.NoError(t, err)

	require.NoError(t, env.svc.Revoke(admin, admin.TenantID, invitation.ID))

	var reloaded model.Invitation
	require.NoError(t, env.db.First(&reloaded, invitation.ID).Error)
	assert.Equal(t, model.InvitationRevoked, reloaded.Status)

	// Wrong workspace or unknown id.
	assert.ErrorIs(t, env.svc.Revoke(admin, admin.TenantID+1, invitation.ID), apperr.ErrNotFound)
}

func TestSweepIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	overdue, _, err := env.svc.Create(admin, admin.TenantID, "late@member.test", model.WorkspaceRoleMember)
	require.NoError(t, err)
	require.NoError(t, env.db.Model(overdue).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	fresh, _, err := env.svc.Create(admin, admin.TenantID, "fresh@member.test", model.WorkspaceRoleMember)
	require.NoError(t, err)

	expired, err := env.svc.Sweep()
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	expired, err = env.svc.Sweep()
	require.NoError(t, err)
	assert.Zero(t, expired)

	var reloaded model.Invitation
	require.NoError(t, env.db.First(&reloaded, fresh.ID).Error)
	assert.Equal(t, model.InvitationPending, reloaded.Status)
}

func TestListNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	admin := env.registerTenant(t, "Acme", "admin@acme.test")

	_, _, err := env.svc.Create(admin, admin.TenantID, "one@member.test", model.WorkspaceRoleMember)
	require.NoError(t, err)
	_, _, err = env.svc.Create(admin, admin.TenantID, "two@member.test", model.WorkspaceRoleMember)
	require.NoError(t, err)

	invitations, err := env.svc.List(admin.TenantID)
	require.NoError(t, err)
	require.Len(t, invitations, 2)
}
