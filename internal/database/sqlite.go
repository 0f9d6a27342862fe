package database

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"purser/internal/models"
)

var DB *gorm.DB

// Initialize opens (or creates) the sqlite database and migrates the schema.
func Initialize(dbPath string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	// Cascade deletes rely on sqlite enforcing foreign keys.
	DB.Exec("PRAGMA foreign_keys = ON")

	log.Println("Database connected successfully")

	// Clean up data that would violate the unique flag index before
	// AutoMigrate adds it.
	if err := cleanupDuplicateFlags(DB); err != nil {
		return err
	}

	err = DB.AutoMigrate(
		&models.Item{},
		&models.Price{},
		&models.Target{},
		&models.Flag{},
		&models.CheckRun{},
	)
	if err != nil {
		return err
	}

	if err := RunMigrations(DB); err != nil {
		return err
	}

	log.Println("Database migration completed")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}
