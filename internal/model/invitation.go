package model

import (
	"time"
)

// Invitation statuses. pending is the only non-terminal state; every
// transition out of it is one-way.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
	InvitationExpired  = "expired"
	InvitationRevoked  = "revoked"
)

// Invitation tracks a pending invite into a workspace.
type Invitation struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	WorkspaceID uint       `json:"workspace_id" gorm:"index;not null"`
	Email       string     `json:"email" gorm:"type:varchar(100);not null;index"`
	Role        string     `json:"role" gorm:"type:varchar(50);not null;default:'member'"`
	Token       string     `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	InvitedBy   uint       `json:"invited_by" gorm:"not null"`
	Status      string     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"index;not null"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Workspace Workspace `json:"workspace,omitempty" gorm:"foreignKey:WorkspaceID"`
}
