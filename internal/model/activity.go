package model

import (
	"time"
)

// Activity actions recorded for auditing.
const (
	ActivitySwitch            = "workspace_switch"
	ActivityAccessDenied      = "access_denied"
	ActivityInvitationSent    = "invitation_sent"
	ActivityInvitationRevoked = "invitation_revoked"
	ActivityMemberRemoved     = "member_removed"
)

// WorkspaceActivity is an append-only audit entry scoped to a workspace.
type WorkspaceActivity struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	WorkspaceID uint      `json:"workspace_id" gorm:"index;not null"`
	UserID      uint      `json:"user_id" gorm:"index"`
	Action      string    `json:"action" gorm:"type:varchar(50);not null"`
	Detail      string    `json:"detail,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}
