// Package database 负责建立 MySQL 与 Redis 连接。
package database

import (
	"fmt"
	"time"

	"edu-archive-go/internal/config"
	"edu-archive-go/internal/model"
	"edu-archive-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL 初始化 MySQL 数据库连接
func NewMySQL(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		// 可以在这里添加 GORM 的配置
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, 10)) // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, 100)) // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour)                     // 设置了连接可复用的最大时间

	log.Info("MySQL database connected successfully")
	return db, nil
}

// AutoMigrate 创建或更新归档系统的所有表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Category{},
		&model.AcademicPeriod{},
		&model.Tag{},
		&model.Correspondent{},
		&model.LetterTemplate{},
		&model.Document{},
		&model.AuditLog{},
	)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
