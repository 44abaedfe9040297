package models

import "gorm.io/gorm"

// AutoMigrateAll creates or updates every table the application owns.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Customer{},
		&Product{},
		&CustomerProduct{},
	)
}
