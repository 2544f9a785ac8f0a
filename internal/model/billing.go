package model

import (
	"time"
)

// Subscription statuses.
const (
	SubscriptionActive    = "active"
	SubscriptionTrial     = "trial"
	SubscriptionPastDue   = "past_due"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// Unlimited marks a plan dimension with no cap.
const Unlimited = -1

// WorkspacePlan defines the numeric limits of a subscription plan.
// A value of -1 means unlimited.
type WorkspacePlan struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	Name              string    `json:"name" gorm:"type:varchar(100);not null"`
	MaxMembers        int       `json:"max_members" gorm:"default:-1"`
	MaxAutomations    int       `json:"max_automations" gorm:"default:-1"`
	MaxEmailsPerMonth int       `json:"max_emails_per_month" gorm:"default:-1"`
	MaxProposals      int       `json:"max_proposals" gorm:"default:-1"`
	MaxStorageMB      int       `json:"max_storage_mb" gorm:"default:-1"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// WorkspaceSubscription links a workspace to a plan.
type WorkspaceSubscription struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	WorkspaceID uint      `json:"workspace_id" gorm:"index;not null"`
	PlanID      uint      `json:"plan_id" gorm:"not null"`
	Status      string    `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Plan WorkspacePlan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
}

// WorkspaceUsage is the per-period counter row for plan-gated resources.
// Period is formatted YYYY-MM.
type WorkspaceUsage struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	WorkspaceID    uint      `json:"workspace_id" gorm:"not null;uniqueIndex:ux_usage_workspace_period,priority:1"`
	Period         string    `json:"period" gorm:"type:varchar(7);not null;uniqueIndex:ux_usage_workspace_period,priority:2"`
	AutomationsRun int       `json:"automations_run" gorm:"default:0"`
	EmailsSent     int       `json:"emails_sent" gorm:"default:0"`
	ProposalsMade  int       `json:"proposals_made" gorm:"default:0"`
	StorageUsedMB  int       `json:"storage_used_mb" gorm:"default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
