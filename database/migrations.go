package database

import (
	"gorm.io/gorm"

	"edumedia/logger"
	"edumedia/models"
)

func RunMigrations(db *gorm.DB, log *logger.Logger) error {
	log.Info("Running database migrations...")

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Error("Error running migrations", "error", err)
		return err
	}

	log.Info("Migrations completed successfully")
	return nil
}
