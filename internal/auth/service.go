package auth

import (
	"errors"
	"fmt"
	"time"

	"access-service/internal/apperr"
	"access-service/internal/model"
	"access-service/pkg/jwtutil"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WorkspaceValidator reports whether a previously issued active-workspace
// claim is still usable for the user. Implemented by the workspace resolver.
type WorkspaceValidator interface {
	ClaimStillValid(userID, homeTenantID, workspaceID uint) bool
}

// TokenPair is the access/refresh pair returned by login, registration and
// workspace switch.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service is the credential and session manager.
type Service struct {
	db         *gorm.DB
	jwt        *jwtutil.JWTUtil
	policy     *PasswordPolicy
	throttle   *Throttle
	workspaces WorkspaceValidator
	refreshTTL time.Duration
	log        *zap.Logger
}

// NewService wires the credential manager. workspaces may be nil until the
// resolver is constructed; SetWorkspaceValidator completes the wiring.
func NewService(db *gorm.DB, jwt *jwtutil.JWTUtil, policy *PasswordPolicy, throttle *Throttle, refreshTTL time.Duration, log *zap.Logger) *Service {
	return &Service{
		db:         db,
		jwt:        jwt,
		policy:     policy,
		throttle:   throttle,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// SetWorkspaceValidator injects the workspace claim validator after both
// components exist.
func (s *Service) SetWorkspaceValidator(v WorkspaceValidator) {
	s.workspaces = v
}

// Policy exposes the password policy for handlers that validate input.
func (s *Service) Policy() *PasswordPolicy {
	return s.policy
}

// RegisterTenant creates a tenant workspace, its default admin role and the
// first user in one transaction. The first user is the tenant admin.
func (s *Service) RegisterTenant(tenantName, email, password string) (*model.User, *TokenPair, error) {
	if violations := s.policy.Validate(password); len(violations) > 0 {
		return nil, nil, fmt.Errorf("password policy: %v", violations)
	}

	email = normalizeEmail(email)

	var existing model.User
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, nil, fmt.Errorf("email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	hashed, err := s.policy.Hash(password)
	if err != nil {
		return nil, nil, err
	}

	var user model.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		workspace := model.Workspace{Name: tenantName, Active: true}
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}

		adminRole := model.Role{TenantID: workspace.ID, Name: "Admin"}
		adminRole.SetPermissionList([]string{"*"})
		if err := tx.Create(&adminRole).Error; err != nil {
			return err
		}

		user = model.User{
			TenantID: workspace.ID,
			Email:    email,
			Password: hashed,
			UserType: model.UserTypeAgencyAdmin,
			IsAdmin:  true,
			RoleID:   &adminRole.ID,
			Active:   true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		// The creator owns the tenant workspace
		return tx.Model(&workspace).Update("owner_id", user.ID).Error
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.IssuePair(&user, nil)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("Tenant registered",
		zap.String("tenant", tenantName),
		zap.Uint("tenant_id", user.TenantID),
		zap.String("email", user.Email))

	return &user, pair, nil
}

// CreateUser creates a user inside an existing tenant; used by invitation
// acceptance for addresses without an account.
func (s *Service) CreateUser(tx *gorm.DB, tenantID uint, email, password, userType string) (*model.User, error) {
	if violations := s.policy.Validate(password); len(violations) > 0 {
		return nil, fmt.Errorf("password policy: %v", violations)
	}
	hashed, err := s.policy.Hash(password)
	if err != nil {
		return nil, err
	}
	user := model.User{
		TenantID: tenantID,
		Email:    normalizeEmail(email),
		Password: hashed,
		UserType: userType,
		Active:   true,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials behind the throttle and issues a token pair.
// Lockout is checked before any credential lookup, and the wrong-password
// and unknown-email cases are indistinguishable to the caller.
func (s *Service) Login(email, password string) (*model.User, *TokenPair, error) {
	email = normalizeEmail(email)

	locked, err := s.throttle.IsLocked(email)
	if err != nil {
		return nil, nil, err
	}
	if locked {
		if err := s.throttle.Record(email, false, model.AttemptReasonLockedOut); err != nil {
			s.log.Warn("Failed to record locked-out attempt", zap.Error(err))
		}
		return nil, nil, apperr.ErrAccountLocked
	}

	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if recErr := s.throttle.Record(email, false, model.AttemptReasonBadCredentials); recErr != nil {
			s.log.Warn("Failed to record login attempt", zap.Error(recErr))
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !user.Active {
		if err := s.throttle.Record(email, false, model.AttemptReasonInactive); err != nil {
			s.log.Warn("Failed to record login attempt", zap.Error(err))
		}
		return nil, nil, apperr.ErrInvalidCredentials
	}

	if !s.policy.Verify(user.Password, password) {
		if err := s.throttle.Record(email, false, model.AttemptReasonBadCredentials); err != nil {
			s.log.Warn("Failed to record login attempt", zap.Error(err))
		}
		return nil, nil, apperr.ErrInvalidCredentials
	}

	if err := s.throttle.Record(email, true, ""); err != nil {
		s.log.Warn("Failed to record login attempt", zap.Error(err))
	}

	pair, err := s.IssuePair(&user, nil)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("User logged in", zap.String("email", user.Email), zap.Uint("user_id", user.ID))
	return &user, pair, nil
}

// IssuePair signs an access and refresh token for the user and persists the
// refresh token server-side so it can be revoked.
func (s *Service) IssuePair(user *model.User, activeWorkspaceID *uint) (*TokenPair, error) {
	claims := s.claimsFor(user, activeWorkspaceID)

	access, err := s.jwt.GenerateAccessToken(claims)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwt.GenerateRefreshToken(claims)
	if err != nil {
		return nil, err
	}

	record := model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid, still-stored refresh token for a new access
// token. A stale active-workspace claim is silently dropped rather than
// failing the refresh.
func (s *Service) Refresh(refreshToken string) (string, error) {
	claims, err := s.jwt.ValidateToken(refreshToken, jwtutil.KindRefresh)
	if err != nil {
		return "", apperr.ErrAuthenticationRequired
	}

	var record model.RefreshToken
	if err := s.db.Where("token = ?", refreshToken).First(&record).Error; err != nil {
		// Revoked or never issued
		return "", apperr.ErrAuthenticationRequired
	}
	if time.Now().After(record.ExpiresAt) {
		return "", apperr.ErrAuthenticationRequired
	}

	var user model.User
	if err := s.db.First(&user, claims.UserID).Error; err != nil || !user.Active {
		return "", apperr.ErrAuthenticationRequired
	}

	activeWorkspaceID := claims.ActiveWorkspaceID
	if activeWorkspaceID != nil && s.workspaces != nil {
		if !s.workspaces.ClaimStillValid(user.ID, user.TenantID, *activeWorkspaceID) {
			activeWorkspaceID = nil
		}
	}

	return s.jwt.GenerateAccessToken(s.claimsFor(&user, activeWorkspaceID))
}

// Logout revokes the presented refresh token. Unknown tokens are a no-op so
// logout is idempotent across devices.
func (s *Service) Logout(refreshToken string) error {
	return s.db.Where("token = ?", refreshToken).Delete(&model.RefreshToken{}).Error
}

// RevokeAll deletes every refresh token of the user, forcing
// re-authentication everywhere. Called on workspace removal, password
// change and account deactivation.
func (s *Service) RevokeAll(userID uint) error {
	return s.db.Where("user_id = ?", userID).Delete(&model.RefreshToken{}).Error
}

// ChangePassword verifies the current password, applies the policy to the
// new one and revokes all sessions.
func (s *Service) ChangePassword(userID uint, current, next string) error {
	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return apperr.ErrNotFound
	}
	if !s.policy.Verify(user.Password, current) {
		return apperr.ErrInvalidCredentials
	}
	if violations := s.policy.Validate(next); len(violations) > 0 {
		return fmt.Errorf("password policy: %v", violations)
	}
	hashed, err := s.policy.Hash(next)
	if err != nil {
		return err
	}
	if err := s.db.Model(&user).Update("password", hashed).Error; err != nil {
		return err
	}
	return s.RevokeAll(userID)
}

// DeactivateUser soft-deactivates the account and revokes every session.
func (s *Service) DeactivateUser(userID uint) error {
	if err := s.db.Model(&model.User{}).Where("id = ?", userID).Update("active", false).Error; err != nil {
		return err
	}
	return s.RevokeAll(userID)
}

func (s *Service) claimsFor(user *model.User, activeWorkspaceID *uint) jwtutil.UserClaims {
	return jwtutil.UserClaims{
		UserID:            user.ID,
		TenantID:          user.TenantID,
		Email:             user.Email,
		UserType:          user.UserType,
		IsAdmin:           user.IsAdmin,
		ActiveWorkspaceID: activeWorkspaceID,
	}
}
