package app

import (
	"fmt"

	"github.com/dujiao-next/promoengine/internal/config"
	"github.com/dujiao-next/promoengine/internal/models"
)

// OpenDatabase 按配置连接数据库并迁移表结构
func OpenDatabase(cfg *config.Config) error {
	db := cfg.Database
	pool := models.DBPoolConfig{
		MaxOpenConns:           db.Pool.MaxOpenConns,
		MaxIdleConns:           db.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: db.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: db.Pool.ConnMaxIdleTimeSeconds,
	}
	if err := models.InitDB(db.Driver, db.DSN, pool, models.ParseSQLLogLevel(db.SQLLogLevel)); err != nil {
		return fmt.Errorf("connect %s: %w", db.Driver, err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
