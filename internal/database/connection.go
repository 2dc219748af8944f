package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/timernudge/timernudge/internal/config"
	"github.com/timernudge/timernudge/internal/models"
)

const defaultDBName = "timernudge.db"

type DB struct {
	*gorm.DB
}

// GetDefaultDBPath returns the database path under the user config directory
func GetDefaultDBPath() (string, error) {
	return config.DefaultPath(defaultDBName)
}

// Connect opens the SQLite database at dbPath, or the default path when empty.
func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		var err error
		dbPath, err = GetDefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{db}, nil
}

// Initialize runs auto-migration for all models
func (db *DB) Initialize() error {
	err := db.AutoMigrate(&models.CheckRecord{}, &models.ErrorLog{}, &models.Credential{})
	if err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
