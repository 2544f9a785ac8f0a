// Package permission resolves a principal's effective permissions for the
// active workspace. Two strategies exist and never mix: the legacy flat
// permission list when multi-workspace mode is off, and the membership-role
// matrix when it is on.
package permission

import (
	"errors"

	"access-service/internal/model"
	"access-service/internal/workspace"

	"gorm.io/gorm"
)

// Set is the effective permission predicate handed to business logic.
type Set interface {
	Can(module, action string) bool
}

// LegacyPermissions is the flat permission-string strategy. isAdmin grants
// everything; otherwise a permission is granted when the list carries "*",
// "module.*" or "module.action".
type LegacyPermissions struct {
	isAdmin bool
	perms   map[string]bool
}

// Can implements Set.
func (l LegacyPermissions) Can(module, action string) bool {
	if l.isAdmin || l.perms["*"] {
		return true
	}
	return l.perms[module+".*"] || l.perms[module+"."+action]
}

// StructuredPermissions is the module×action matrix strategy used under
// multi-workspace mode. Absence of a row means not granted.
type StructuredPermissions struct {
	grantAll bool
	matrix   map[[2]string]bool
}

// Can implements Set.
func (s StructuredPermissions) Can(module, action string) bool {
	if s.grantAll {
		return true
	}
	return s.matrix[[2]string{module, action}]
}

// Checker computes permission sets from the store.
type Checker struct {
	db *gorm.DB
}

// NewChecker builds the checker.
func NewChecker(db *gorm.DB) *Checker {
	return &Checker{db: db}
}

// For resolves the effective permission set for (principal, resolved
// workspace).
func (c *Checker) For(user *model.User, ctx *workspace.Context) (Set, error) {
	if !ctx.MultiWorkspace {
		return c.legacyFor(user)
	}

	// Home-tenant admin authority does not cross into workspaces the user
	// was not invited to.
	if ctx.IsHome() && user.IsAdmin {
		return StructuredPermissions{grantAll: true}, nil
	}

	membership := ctx.Membership
	if membership == nil && !ctx.IsHome() {
		// Resolution should have rejected this already
		return StructuredPermissions{}, nil
	}

	if membership == nil {
		// Non-admin home-tenant user without an explicit membership:
		// fall through to the workspace default role, if any.
		return c.matrixForDefaultRole(ctx.WorkspaceID)
	}

	switch membership.Role {
	case model.WorkspaceRoleOwner, model.WorkspaceRoleAdmin:
		return StructuredPermissions{grantAll: true}, nil
	}

	if membership.CustomRoleID != nil {
		return c.matrixFor(*membership.CustomRoleID)
	}
	return c.matrixForDefaultRole(ctx.WorkspaceID)
}

func (c *Checker) legacyFor(user *model.User) (Set, error) {
	set := LegacyPermissions{isAdmin: user.IsAdmin, perms: map[string]bool{}}
	if user.RoleID == nil {
		return set, nil
	}

	var role model.Role
	err := c.db.First(&role, *user.RoleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return set, nil
	}
	if err != nil {
		return nil, err
	}

	for _, p := range role.PermissionList() {
		set.perms[p] = true
	}
	return set, nil
}

func (c *Checker) matrixFor(roleID uint) (Set, error) {
	var rows []model.RolePermission
	if err := c.db.Where("role_id = ? AND allowed = ?", roleID, true).Find(&rows).Error; err != nil {
		return nil, err
	}

	set := StructuredPermissions{matrix: make(map[[2]string]bool, len(rows))}
	for _, row := range rows {
		set.matrix[[2]string{row.Module, row.Action}] = true
	}
	return set, nil
}

func (c *Checker) matrixForDefaultRole(workspaceID uint) (Set, error) {
	var role model.CustomRole
	err := c.db.Where("workspace_id = ? AND is_default = ?", workspaceID, true).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Default-deny
		return StructuredPermissions{}, nil
	}
	if err != nil {
		return nil, err
	}
	return c.matrixFor(role.ID)
}
