// internal/store/db.go
package store

import (
	"errors"
	"fmt"
	"log"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/config"
	"biblioteca-mistica/pkg/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to postgres and migrates the schema.
func Open(cfg *config.Config) (*gorm.DB, error) {
	return OpenDSN(cfg.DSN())
}

// OpenDSN connects with an explicit DSN.
func OpenDSN(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect to DB: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Println("✅ Biblioteca DB connected & migrated")
	return db, nil
}

// Migrate runs AutoMigrate on every model (safe in dev; use migrations in prod).
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Module{},
		&models.PDF{},
		&models.Banner{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.Notification{},
		&models.NotificationPreferences{},
		&models.DeviceToken{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// translate maps GORM errors onto the shared sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.ErrDuplicate
	}
	return err
}
