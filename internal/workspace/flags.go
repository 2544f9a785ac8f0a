package workspace

import (
	"errors"

	"access-service/internal/model"

	"gorm.io/gorm"
)

// Flags resolves feature flags with tenant overrides.
type Flags struct {
	db *gorm.DB
}

// NewFlags builds the flag store.
func NewFlags(db *gorm.DB) *Flags {
	return &Flags{db: db}
}

// Enabled resolves a flag for a tenant. A tenant-specific row overrides the
// global row; absence of both means disabled.
func (f *Flags) Enabled(key string, tenantID uint) (bool, error) {
	var flag model.FeatureFlag
	err := f.db.Where("key = ? AND tenant_id = ?", key, tenantID).First(&flag).Error
	if err == nil {
		return flag.Enabled, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	err = f.db.Where("key = ? AND tenant_id IS NULL", key).First(&flag).Error
	if err == nil {
		return flag.Enabled, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// Set upserts a flag row. A nil tenantID sets the global default.
func (f *Flags) Set(key string, tenantID *uint, enabled bool) error {
	query := f.db.Where("key = ?", key)
	if tenantID == nil {
		query = query.Where("tenant_id IS NULL")
	} else {
		query = query.Where("tenant_id = ?", *tenantID)
	}

	var flag model.FeatureFlag
	err := query.First(&flag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return f.db.Create(&model.FeatureFlag{Key: key, TenantID: tenantID, Enabled: enabled}).Error
	}
	if err != nil {
		return err
	}
	return f.db.Model(&flag).Update("enabled", enabled).Error
}
