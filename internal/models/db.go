package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/promoengine/internal/logger"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// DB 全局连接，由 InitDB 设置
var DB *gorm.DB

// DBPoolConfig 连接池参数，零值表示保持驱动默认
type DBPoolConfig struct {
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeSeconds int
	ConnMaxIdleTimeSeconds int
}

// OpenDialector 支持 sqlite（默认，纯 Go 实现）与 postgres
func OpenDialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// ParseSQLLogLevel silent / error / warn / info，其余按 warn
func ParseSQLLogLevel(raw string) gormlogger.LogLevel {
	levels := map[string]gormlogger.LogLevel{
		"silent": gormlogger.Silent,
		"error":  gormlogger.Error,
		"warn":   gormlogger.Warn,
		"info":   gormlogger.Info,
	}
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return lvl
	}
	return gormlogger.Warn
}

// InitDB 打开连接并设置连接池；SQL 日志写入结构化日志
func InitDB(driver, dsn string, pool DBPoolConfig, level gormlogger.LogLevel) error {
	dialector, err := OpenDialector(driver, dsn)
	if err != nil {
		return err
	}
	if level == 0 {
		level = gormlogger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logger.StdLogger(), gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	if pool.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeSeconds) * time.Second)
	}
	DB = db
	return nil
}

// AllModels 迁移顺序：商品、优惠、台账、购物车、订单
func AllModels() []interface{} {
	return []interface{}{
		&Product{}, &ProductVariant{},
		&Promotion{}, &PromotionBundleRule{},
		&PromotionUsage{}, &RedeemablePromotion{},
		&Cart{}, &CartItem{},
		&Order{}, &OrderItem{},
	}
}

func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return DB.AutoMigrate(AllModels()...)
}
