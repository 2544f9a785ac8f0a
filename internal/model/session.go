package model

import (
	"time"
)

// Login attempt failure reasons recorded for auditing.
const (
	AttemptReasonBadCredentials = "invalid_credentials"
	AttemptReasonLockedOut      = "locked_out"
	AttemptReasonInactive       = "account_inactive"
)

// LoginAttempt is an append-only record of an authentication attempt,
// keyed by lowercased email. Rows are never updated.
type LoginAttempt struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(100);not null;index:idx_attempt_email_time,priority:1"`
	Success   bool      `json:"success" gorm:"default:false"`
	Reason    string    `json:"reason,omitempty" gorm:"type:varchar(50)"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_attempt_email_time,priority:2"`
}

// RefreshToken is the server-side record of an issued refresh token, keyed
// by the raw token value so it can be revoked. A user may hold several at
// once (multi-device).
type RefreshToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Token     string    `json:"-" gorm:"type:varchar(512);uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
