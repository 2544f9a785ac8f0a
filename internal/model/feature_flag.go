package model

import (
	"time"
)

// Feature flag keys.
const (
	FlagMultiWorkspace = "multi_workspace"
)

// FeatureFlag enables a feature globally (TenantID nil) or for one tenant.
// A tenant row overrides the global row; absence of both means disabled.
type FeatureFlag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Key       string    `json:"key" gorm:"type:varchar(100);not null;uniqueIndex:ux_flag_key_tenant,priority:1"`
	TenantID  *uint     `json:"tenant_id,omitempty" gorm:"uniqueIndex:ux_flag_key_tenant,priority:2"`
	Enabled   bool      `json:"enabled" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
