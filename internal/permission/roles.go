package permission

import (
	"errors"
	"fmt"

	"access-service/internal/apperr"
	"access-service/internal/model"

	"gorm.io/gorm"
)

// Grant is one cell of a role's permission matrix as submitted by clients.
type Grant struct {
	Module  string `json:"module"`
	Action  string `json:"action"`
	Allowed bool   `json:"allowed"`
}

// CreateRole creates a workspace custom role. Marking it default clears the
// previous default.
func (c *Checker) CreateRole(workspaceID uint, name string, isDefault bool) (*model.CustomRole, error) {
	role := model.CustomRole{WorkspaceID: workspaceID, Name: name, IsDefault: isDefault}
	err := c.db.Transaction(func(tx *gorm.DB) error {
		if isDefault {
			if err := tx.Model(&model.CustomRole{}).
				Where("workspace_id = ? AND is_default = ?", workspaceID, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&role).Error
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// ListRoles returns the workspace's custom roles.
func (c *Checker) ListRoles(workspaceID uint) ([]model.CustomRole, error) {
	var roles []model.CustomRole
	err := c.db.Where("workspace_id = ?", workspaceID).Order("id").Find(&roles).Error
	return roles, err
}

// SetPermissions replaces the role's permission rows with the given grants.
// Only explicit allowed=true rows are stored; everything else stays denied.
func (c *Checker) SetPermissions(workspaceID, roleID uint, grants []Grant) error {
	role, err := c.roleInWorkspace(workspaceID, roleID)
	if err != nil {
		return err
	}

	valid := validCells()
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&model.RolePermission{}).Error; err != nil {
			return err
		}
		for _, g := range grants {
			if !valid[[2]string{g.Module, g.Action}] {
				return fmt.Errorf("unknown permission cell %s.%s", g.Module, g.Action)
			}
			if !g.Allowed {
				continue
			}
			row := model.RolePermission{RoleID: role.ID, Module: g.Module, Action: g.Action, Allowed: true}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteRole removes a custom role, cascading its permission rows first so
// no grants survive a role-id reuse.
func (c *Checker) DeleteRole(workspaceID, roleID uint) error {
	role, err := c.roleInWorkspace(workspaceID, roleID)
	if err != nil {
		return err
	}
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&model.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.WorkspaceMembership{}).
			Where("custom_role_id = ?", role.ID).
			Update("custom_role_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.CustomRole{}, role.ID).Error
	})
}

func (c *Checker) roleInWorkspace(workspaceID, roleID uint) (*model.CustomRole, error) {
	var role model.CustomRole
	err := c.db.Where("id = ? AND workspace_id = ?", roleID, workspaceID).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func validCells() map[[2]string]bool {
	cells := make(map[[2]string]bool)
	for _, m := range model.Modules() {
		for _, a := range model.Actions() {
			cells[[2]string{m, a}] = true
		}
	}
	return cells
}
