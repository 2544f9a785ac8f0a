package model

import (
	"time"

	"gorm.io/gorm"
)

// User classes recognized by the platform.
const (
	UserTypePlatformAdmin = "platform_admin"
	UserTypeAgencyAdmin   = "agency_admin"
	UserTypeTeamMember    = "team_member"
	UserTypeCustomer      = "customer"
)

// User represents the user model stored in the database
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TenantID  uint           `json:"tenant_id" gorm:"index;not null"` // home tenant
	Email     string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password  string         `json:"-" gorm:"type:varchar(255)"`
	UserType  string         `json:"user_type" gorm:"type:varchar(30);not null;default:'team_member'"`
	IsAdmin   bool           `json:"is_admin" gorm:"default:false"`
	RoleID    *uint          `json:"role_id,omitempty" gorm:"index"` // legacy flat role
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
