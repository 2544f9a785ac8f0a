package auth

import (
	"strings"
	"time"

	"access-service/internal/model"

	"gorm.io/gorm"
)

// Throttle enforces a sliding-window lockout over the append-only
// login_attempts log.
type Throttle struct {
	db          *gorm.DB
	window      time.Duration
	maxFailures int
}

// NewThrottle builds a throttle; window and maxFailures come from config
// (15 minutes / 5 failures by default).
func NewThrottle(db *gorm.DB, window time.Duration, maxFailures int) *Throttle {
	return &Throttle{db: db, window: window, maxFailures: maxFailures}
}

// IsLocked reports whether the email has reached the failure threshold
// within the trailing window. Called before any credential lookup.
func (t *Throttle) IsLocked(email string) (bool, error) {
	var count int64
	cutoff := time.Now().Add(-t.window)
	err := t.db.Model(&model.LoginAttempt{}).
		Where("email = ? AND success = ? AND created_at >= ?", normalizeEmail(email), false, cutoff).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count >= int64(t.maxFailures), nil
}

// Record appends an attempt. Rows are never updated afterwards.
func (t *Throttle) Record(email string, success bool, reason string) error {
	attempt := model.LoginAttempt{
		Email:   normalizeEmail(email),
		Success: success,
		Reason:  reason,
	}
	return t.db.Create(&attempt).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
