package database

import (
	"access-service/internal/model"
	"access-service/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the PostgreSQL connection, configures the pool, and runs
// migrations. The returned handle is passed explicitly to every component
// that needs storage; there is no package-level instance.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	// Set default log level if not specified
	logLevel := cfg.DB.LogLevel
	if logLevel == 0 {
		logLevel = logger.Warn
	}

	// Connect with PreferSimpleProtocol to prevent "prepared statement
	// already exists" errors behind connection poolers
	pgConfig := postgres.Config{
		DSN:                  cfg.DB.GetDSN(),
		PreferSimpleProtocol: true,
	}

	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if cfg.DB.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}
	if cfg.DB.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}
	if cfg.DB.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the table structure for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Workspace{},
		&model.WorkspaceMembership{},
		&model.Role{},
		&model.CustomRole{},
		&model.RolePermission{},
		&model.Invitation{},
		&model.LoginAttempt{},
		&model.RefreshToken{},
		&model.FeatureFlag{},
		&model.WorkspacePlan{},
		&model.WorkspaceSubscription{},
		&model.WorkspaceUsage{},
		&model.WorkspaceActivity{},
	)
}
