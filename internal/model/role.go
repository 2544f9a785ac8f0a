package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Modules covered by the permission matrix.
const (
	ModuleClients     = "clients"
	ModuleProjects    = "projects"
	ModuleTasks       = "tasks"
	ModuleInvoices    = "invoices"
	ModuleProposals   = "proposals"
	ModuleAutomations = "automations"
	ModuleEmail       = "email"
	ModuleBilling     = "billing"
	ModuleReports     = "reports"
	ModuleSettings    = "settings"
	ModuleTeam        = "team"
)

// Actions recognized by the permission matrix.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionManage = "manage"
)

// Modules returns the fixed module set.
func Modules() []string {
	return []string{
		ModuleClients, ModuleProjects, ModuleTasks, ModuleInvoices,
		ModuleProposals, ModuleAutomations, ModuleEmail, ModuleBilling,
		ModuleReports, ModuleSettings, ModuleTeam,
	}
}

// Actions returns the fixed action set.
func Actions() []string {
	return []string{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionManage}
}

// Role is the legacy flat role: a tenant-scoped named list of permission
// strings. "*" grants everything.
type Role struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TenantID    uint           `json:"tenant_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Permissions string         `json:"permissions" gorm:"type:text"` // comma-separated permission names
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// PermissionList splits the stored permission string.
func (r *Role) PermissionList() []string {
	if r.Permissions == "" {
		return nil
	}
	parts := strings.Split(r.Permissions, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// SetPermissionList stores the permission names.
func (r *Role) SetPermissionList(perms []string) {
	r.Permissions = strings.Join(perms, ",")
}

// CustomRole is a workspace-defined role resolved through the
// module×action matrix.
type CustomRole struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	WorkspaceID uint      `json:"workspace_id" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	IsDefault   bool      `json:"is_default" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RolePermission is one cell of the module×action matrix. Absence of a row
// means not granted.
type RolePermission struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RoleID    uint      `json:"role_id" gorm:"not null;uniqueIndex:ux_role_module_action,priority:1"`
	Module    string    `json:"module" gorm:"type:varchar(50);not null;uniqueIndex:ux_role_module_action,priority:2"`
	Action    string    `json:"action" gorm:"type:varchar(20);not null;uniqueIndex:ux_role_module_action,priority:3"`
	Allowed   bool      `json:"allowed" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}
