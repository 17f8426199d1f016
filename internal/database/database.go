package database

import (
	"fmt"

	"github.com/coachlab/coach-api/internal/config"
	"github.com/coachlab/coach-api/internal/logger"
	"github.com/coachlab/coach-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Dialector picks the gorm driver named by DATABASE_DRIVER.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DatabaseDriver {
	case "", "sqlite":
		return sqlite.Open(cfg.DatabasePath), nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		return postgres.Open(cfg.DatabaseURL), nil
	case "mysql":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the mysql driver")
		}
		return mysql.Open(cfg.DatabaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

// Open connects and migrates. Duplicate-key errors are translated to
// gorm.ErrDuplicatedKey on every driver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(logger.GormLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.CheckIn{},
		&models.Streak{},
		&models.PointsLedgerEntry{},
		&models.AchievementUnlock{},
	)
}

func Connect(cfg *config.Config, log *zap.Logger) *gorm.DB {
	db, err := Open(cfg)
	if err != nil {
		log.Fatal("Failed to open database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}
	return db
}
