package database

import (
	"fmt"
	"log"
	"time"

	"creditledger/internal/config"
	"creditledger/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitMySQL opens the ledger store and migrates its tables.
func InitMySQL(cfg *config.MySQLConfig) *gorm.DB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("[database] connect mysql: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("[database] get sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		log.Fatalf("[database] migrate: %v", err)
	}

	log.Printf("[database] mysql connected: %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	return db
}

// Migrate creates or updates every ledger table. Order matters for the
// foreign keys.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Client{},
		&model.CatalogItem{},
		&model.Debt{},
		&model.DebtItem{},
		&model.Payment{},
		&model.MirrorLog{},
		&model.NotificationDevice{},
		&model.OutboxMessage{},
	)
}
