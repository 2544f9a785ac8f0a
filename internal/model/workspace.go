package model

import (
	"time"

	"gorm.io/gorm"
)

// Workspace represents a tenant-like container of business data.
// A user's home tenant is itself a workspace; additional workspaces are
// reached through WorkspaceMembership rows.
type Workspace struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	OwnerID   uint           `json:"owner_id" gorm:"index"`
	PlanID    *uint          `json:"plan_id,omitempty" gorm:"index"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
