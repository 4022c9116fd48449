package database

import (
	"fmt"

	"github.com/motohub/core/internal/config"
	"github.com/motohub/core/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance.
var DB *gorm.DB

// Connect opens a MySQL connection and optionally runs auto-migration.
func Connect(cfg *config.AppConfig, autoMigrate bool) (*gorm.DB, error) {
	db, err := openDB(cfg, resolveLogLevel(cfg))
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	DB = db
	return db, nil
}

func resolveLogLevel(cfg *config.AppConfig) logger.LogLevel {
	if cfg.IsDev() {
		return logger.Info
	}
	return logger.Warn
}

func openDB(cfg *config.AppConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               cfg.Database.DSNValue(),
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, nil
}

// Migrate runs GORM auto-migration for all relational models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.UserModel{},
		&models.UserSession{},
		&models.GarageModel{},
		&models.ReviewModel{},
		&models.BookingModel{},
	); err != nil {
		return err
	}

	if db.Dialector.Name() == "mysql" {
		if err := db.Exec("ALTER TABLE `garages` MODIFY COLUMN `images` LONGTEXT NULL").Error; err != nil {
			return err
		}
		if err := db.Exec("ALTER TABLE `reviews` MODIFY COLUMN `images` LONGTEXT NULL").Error; err != nil {
			return err
		}
	}

	return nil
}
