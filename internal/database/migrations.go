package database

import (
	"log"

	"gorm.io/gorm"
)

// cleanupDuplicateFlags removes duplicate (item_id, kind) flag rows before
// the unique constraint is added. This runs BEFORE AutoMigrate to prevent
// constraint violations on databases created by earlier schema versions.
func cleanupDuplicateFlags(db *gorm.DB) error {
	if !db.Migrator().HasTable("flags") {
		return nil
	}

	// Keep the most recently observed row per (item_id, kind).
	result := db.Exec(`
		DELETE FROM flags
		WHERE id NOT IN (
			SELECT MAX(id)
			FROM flags
			GROUP BY item_id, kind
		)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d duplicate flag entries", result.RowsAffected)
	}

	return nil
}

// RunMigrations runs custom data migrations after schema changes.
func RunMigrations(db *gorm.DB) error {
	if err := normalizeCurrency(db); err != nil {
		return err
	}
	if err := normalizeItemStatus(db); err != nil {
		return err
	}
	return nil
}

// normalizeCurrency gives legacy price rows a concrete currency. Early
// versions stored an empty string when the source page did not declare one.
func normalizeCurrency(db *gorm.DB) error {
	if db.Migrator().HasColumn("prices", "currency") {
		db.Exec(`UPDATE prices SET currency = 'USD' WHERE currency IS NULL OR currency = ''`)
	}
	if db.Migrator().HasColumn("items", "currency") {
		// Backfill item currency from its most recent price observation.
		db.Exec(`
			UPDATE items SET currency = (
				SELECT p.currency FROM prices p
				WHERE p.item_id = items.id
				ORDER BY p.fetched_at DESC LIMIT 1
			)
			WHERE (currency IS NULL OR currency = '')
			AND EXISTS (SELECT 1 FROM prices p WHERE p.item_id = items.id)
		`)
	}
	return nil
}

// normalizeItemStatus ensures every item carries a status value.
func normalizeItemStatus(db *gorm.DB) error {
	if db.Migrator().HasColumn("items", "status") {
		db.Exec(`UPDATE items SET status = 'pending' WHERE status IS NULL OR status = ''`)
	}
	return nil
}
