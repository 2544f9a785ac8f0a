package workspace

import (
	"errors"
	"time"

	"access-service/internal/apperr"
	"access-service/internal/auth"
	"access-service/internal/model"
	"access-service/pkg/jwtutil"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Context is the resolved workspace context attached to a request. The
// WorkspaceID here is the only value business logic may use to scope tenant
// data once resolution has run.
type Context struct {
	WorkspaceID    uint
	HomeTenantID   uint
	MultiWorkspace bool
	Membership     *model.WorkspaceMembership // nil when no membership row exists (plain home-tenant access)
}

// IsHome reports whether the active workspace is the principal's home tenant.
func (c Context) IsHome() bool {
	return c.WorkspaceID == c.HomeTenantID
}

// Resolver determines the active workspace for each request and owns the
// explicit switch operation.
type Resolver struct {
	db    *gorm.DB
	flags *Flags
	auth  *auth.Service
	log   *zap.Logger
}

// NewResolver builds the resolver.
func NewResolver(db *gorm.DB, flags *Flags, authSvc *auth.Service, log *zap.Logger) *Resolver {
	return &Resolver{db: db, flags: flags, auth: authSvc, log: log}
}

// Resolve computes the active workspace for the principal. selected is the
// per-request selector (header or query parameter); claimed is the access
// token's active-workspace claim. Priority: selector, claim, home tenant.
func (r *Resolver) Resolve(claims *jwtutil.UserClaims, selected *uint) (*Context, error) {
	enabled, err := r.flags.Enabled(model.FlagMultiWorkspace, claims.TenantID)
	if err != nil {
		return nil, err
	}

	// Flag off: the home tenant is unconditionally active, no membership
	// check performed.
	if !enabled {
		return &Context{WorkspaceID: claims.TenantID, HomeTenantID: claims.TenantID}, nil
	}

	workspaceID := claims.TenantID
	switch {
	case selected != nil:
		workspaceID = *selected
	case claims.ActiveWorkspaceID != nil:
		workspaceID = *claims.ActiveWorkspaceID
	}

	ctx := &Context{WorkspaceID: workspaceID, HomeTenantID: claims.TenantID, MultiWorkspace: true}

	// Invited users whose home tenant is the invited workspace hold a
	// membership row there too; load it so the invited role applies.
	// Absence is only fatal outside the home tenant.
	var membership model.WorkspaceMembership
	err = r.db.Where("user_id = ? AND workspace_id = ?", claims.UserID, workspaceID).First(&membership).Error
	switch {
	case err == nil:
		now := time.Now()
		if err := r.db.Model(&membership).Update("last_accessed_at", now).Error; err != nil {
			r.log.Warn("Failed to refresh last_accessed_at", zap.Error(err))
		}
		membership.LastAccessedAt = &now
		ctx.Membership = &membership
	case errors.Is(err, gorm.ErrRecordNotFound):
		if workspaceID != claims.TenantID {
			r.audit(workspaceID, claims.UserID, model.ActivityAccessDenied, "no membership")
			return nil, apperr.ErrAccessDenied
		}
	default:
		return nil, err
	}
	return ctx, nil
}

// ClaimStillValid reports whether a token's active-workspace claim is still
// usable: multi-workspace still on, and the workspace is the home tenant or
// a membership survives. Used by the refresh flow to drop stale claims.
func (r *Resolver) ClaimStillValid(userID, homeTenantID, workspaceID uint) bool {
	enabled, err := r.flags.Enabled(model.FlagMultiWorkspace, homeTenantID)
	if err != nil || !enabled {
		return false
	}
	if workspaceID == homeTenantID {
		return true
	}
	var count int64
	if err := r.db.Model(&model.WorkspaceMembership{}).
		Where("user_id = ? AND workspace_id = ?", userID, workspaceID).
		Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// Switch re-validates membership and issues a fresh token pair with the new
// workspace embedded, so later requests without a selector keep targeting it.
func (r *Resolver) Switch(user *model.User, workspaceID uint) (*auth.TokenPair, error) {
	enabled, err := r.flags.Enabled(model.FlagMultiWorkspace, user.TenantID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, apperr.ErrFeatureDisabled
	}

	if workspaceID != user.TenantID {
		var membership model.WorkspaceMembership
		err := r.db.Where("user_id = ? AND workspace_id = ?", user.ID, workspaceID).First(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.audit(workspaceID, user.ID, model.ActivityAccessDenied, "switch without membership")
			return nil, apperr.ErrAccessDenied
		}
		if err != nil {
			return nil, err
		}

		now := time.Now()
		if err := r.db.Model(&membership).Update("last_accessed_at", now).Error; err != nil {
			r.log.Warn("Failed to refresh last_accessed_at", zap.Error(err))
		}
	}

	r.audit(workspaceID, user.ID, model.ActivitySwitch, "")

	pair, err := r.auth.IssuePair(user, &workspaceID)
	if err != nil {
		return nil, err
	}

	r.log.Info("Workspace switched",
		zap.Uint("user_id", user.ID),
		zap.Uint("workspace_id", workspaceID))
	return pair, nil
}

// WorkspaceEntry is one row of the workspace list shown to a user.
type WorkspaceEntry struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	IsHome    bool   `json:"is_home"`
	IsPrimary bool   `json:"is_primary"`
}

// List returns the home tenant plus every workspace the user is a member of.
func (r *Resolver) List(user *model.User) ([]WorkspaceEntry, error) {
	var home model.Workspace
	if err := r.db.First(&home, user.TenantID).Error; err != nil {
		return nil, err
	}

	homeRole := model.WorkspaceRoleMember
	if user.IsAdmin {
		homeRole = model.WorkspaceRoleAdmin
	}
	entries := []WorkspaceEntry{{
		ID:     home.ID,
		Name:   home.Name,
		Role:   homeRole,
		IsHome: true,
	}}

	var memberships []model.WorkspaceMembership
	if err := r.db.Preload("Workspace").Where("user_id = ?", user.ID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	for _, m := range memberships {
		if m.WorkspaceID == user.TenantID {
			continue
		}
		entries = append(entries, WorkspaceEntry{
			ID:        m.WorkspaceID,
			Name:      m.Workspace.Name,
			Role:      m.Role,
			IsPrimary: m.IsPrimary,
		})
	}
	return entries, nil
}

// Create creates a workspace with the creator as owner.
func (r *Resolver) Create(user *model.User, name string) (*model.Workspace, error) {
	var workspace model.Workspace
	err := r.db.Transaction(func(tx *gorm.DB) error {
		workspace = model.Workspace{Name: name, OwnerID: user.ID, Active: true}
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}

		membership := model.WorkspaceMembership{
			UserID:      user.ID,
			WorkspaceID: workspace.ID,
			Role:        model.WorkspaceRoleOwner,
			JoinedAt:    time.Now(),
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("Workspace created",
		zap.String("name", workspace.Name),
		zap.Uint("id", workspace.ID),
		zap.Uint("owner_id", user.ID))
	return &workspace, nil
}

// RemoveMember deletes a membership and revokes every session of the removed
// user, forcing re-authentication everywhere.
func (r *Resolver) RemoveMember(workspaceID, userID uint) error {
	result := r.db.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Delete(&model.WorkspaceMembership{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrNotFound
	}

	r.audit(workspaceID, userID, model.ActivityMemberRemoved, "")
	return r.auth.RevokeAll(userID)
}

func (r *Resolver) audit(workspaceID, userID uint, action, detail string) {
	entry := model.WorkspaceActivity{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Action:      action,
		Detail:      detail,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		r.log.Warn("Failed to write activity entry",
			zap.String("action", action),
			zap.Error(err))
	}
}
