package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// DB is the shared connection pool, set by SetupDatabase
var DB *gorm.DB

// GetDB returns the shared connection, nil before SetupDatabase
func GetDB() *gorm.DB {
	return DB
}

// DSN builds the MySQL data source name from the DB_* variables
func DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

// Models lists every table managed by the application
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.ProviderAccount{},
		&models.Category{},
		&models.Business{},
		&models.Review{},
		&models.OwnerResponse{},
		&models.Lead{},
		&models.Setting{},
		&models.AdminActionLog{},
	}
}

func SetupDatabase() {
	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       DSN(),
			DefaultStringSize:         256,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{
			TranslateError: true,
		})
		if err == nil {
			// schema is owned by cmd/migrate; AutoMigrate only fills gaps in development
			if env.IsDev() {
				if mErr := DB.AutoMigrate(Models()...); mErr != nil {
					log.Errorf("[Database] auto migration failed: %v", mErr)
				}
			}
			log.Info("[Database] connected")
			return
		}

		log.Warnf("[Database] failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("[Database] retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}
