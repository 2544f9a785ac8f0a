package model

import (
	"time"
)

// Workspace membership roles.
const (
	WorkspaceRoleOwner  = "owner"
	WorkspaceRoleAdmin  = "admin"
	WorkspaceRoleMember = "member"
	WorkspaceRoleViewer = "viewer"
)

// WorkspaceMembership joins a user to a workspace with a role.
// Home-tenant access never requires a membership row.
type WorkspaceMembership struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	UserID         uint       `json:"user_id" gorm:"not null;uniqueIndex:ux_workspace_user,priority:2"`
	WorkspaceID    uint       `json:"workspace_id" gorm:"not null;uniqueIndex:ux_workspace_user,priority:1"`
	Role           string     `json:"role" gorm:"type:varchar(50);not null;default:'member'"`
	CustomRoleID   *uint      `json:"custom_role_id,omitempty" gorm:"index"`
	IsPrimary      bool       `json:"is_primary" gorm:"default:false"`
	InvitedBy      *uint      `json:"invited_by,omitempty"`
	JoinedAt       time.Time  `json:"joined_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	User      User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Workspace Workspace `json:"workspace,omitempty" gorm:"foreignKey:WorkspaceID"`
}
