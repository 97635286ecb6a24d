package common

import (
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"edumedia/config"
	"edumedia/logger"
)

// ConnectDb opens the configured store. It returns nil when the store cannot be opened.
func ConnectDb(cfg config.Database, log *logger.Logger) *gorm.DB {
	gormCfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		if cfg.URL == "" {
			log.Error("DATABASE_URL not set")
			return nil
		}
		dialector = postgres.Open(cfg.URL)
	case "sqlite", "":
		if cfg.Path == "" {
			log.Error("SQLITE_DB not set")
			return nil
		}
		dialector = sqlite.Open(cfg.Path)
	default:
		log.Error("unsupported DB_DRIVER", "driver", cfg.Driver)
		return nil
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		log.Error("Error opening database", "driver", cfg.Driver, "error", err)
		return nil
	}
	log.Info("opened database", "driver", cfg.Driver)
	return db
}
