package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dujiao-next/promoengine/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	UserJWT   JWTConfig       `mapstructure:"user_jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Security  SecurityConfig  `mapstructure:"security"`
	Cart      CartConfig      `mapstructure:"cart"`
	Order     OrderConfig     `mapstructure:"order"`
	Promotion PromotionConfig `mapstructure:"promotion"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Service    string `mapstructure:"service"`
	Stdout     bool   `mapstructure:"stdout"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Service:    c.Service,
		Stdout:     c.Stdout,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver      string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN         string             `mapstructure:"dsn"`    // 数据库连接串
	SQLLogLevel string             `mapstructure:"sql_log_level"`
	Pool        DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	ApplyRateLimit RateLimitConfig `mapstructure:"apply_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// CartConfig 购物车配置
type CartConfig struct {
	TTLHours             int    `mapstructure:"ttl_hours"`
	Currency             string `mapstructure:"currency"`
	SweepIntervalSeconds int    `mapstructure:"sweep_interval_seconds"`
	SweepBatchSize       int    `mapstructure:"sweep_batch_size"`
}

// OrderConfig 订单配置
type OrderConfig struct {
	PaymentExpireMinutes int    `mapstructure:"payment_expire_minutes"`
	ShippingFee          string `mapstructure:"shipping_fee"`
	TaxRatePercent       string `mapstructure:"tax_rate_percent"`
	RefundUsageOnCancel  bool   `mapstructure:"refund_usage_on_cancel"`
}

// PromotionConfig 优惠配置
type PromotionConfig struct {
	CurrencyPrecision   int `mapstructure:"currency_precision"`
	BundleCacheSeconds  int `mapstructure:"bundle_cache_seconds"`
	LockTTLMillis       int `mapstructure:"lock_ttl_ms"`
	MaxCodesPerRequest  int `mapstructure:"max_codes_per_request"`
	RequestTimeoutMilli int `mapstructure:"request_timeout_ms"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// EnvPrefix 环境变量前缀，如 PROMO_SERVER_PORT 覆盖 server.port
const EnvPrefix = "PROMO"

var searchPaths = []string{".", "./etc", "../"}

// Load 按 config.yml、环境变量、内置默认值的优先级加载；解析失败直接退出
func Load() *Config {
	cfg, err := LoadFile("")
	if err != nil {
		logger.Errorw("config_load_failed", "error", err)
		panic(err)
	}
	return cfg
}

// LoadFile path 为空时在默认目录中查找 config.yml；找不到文件时只用环境变量与默认值
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range searchPaths {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logger.Warnw("config_file_not_found", "fallback", "env_or_defaults")
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验取值范围，金额类字段须为合法小数
func (c *Config) Validate() error {
	switch {
	case c.Promotion.CurrencyPrecision < 0 || c.Promotion.CurrencyPrecision > 4:
		return fmt.Errorf("promotion.currency_precision must be within [0,4], got %d", c.Promotion.CurrencyPrecision)
	case c.Promotion.MaxCodesPerRequest <= 0:
		return fmt.Errorf("promotion.max_codes_per_request must be positive")
	case c.Cart.TTLHours <= 0:
		return fmt.Errorf("cart.ttl_hours must be positive")
	}
	for name, raw := range map[string]string{"order.shipping_fee": c.Order.ShippingFee, "order.tax_rate_percent": c.Order.TaxRatePercent} {
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || d.IsNegative() {
			return fmt.Errorf("%s must be a non-negative decimal, got %q", name, raw)
		}
	}
	return nil
}

var defaults = map[string]interface{}{
	"server.host": "0.0.0.0",
	"server.port": "8080",
	"server.mode": "debug",

	"log.level":        "",
	"log.service":      "promoengine",
	"log.stdout":       false,
	"log.dir":          "",
	"log.filename":     "promoengine.log",
	"log.max_size_mb":  100,
	"log.max_backups":  7,
	"log.max_age_days": 30,
	"log.compress":     true,

	"database.driver":                          "sqlite",
	"database.dsn":                             "./db/promo.db",
	"database.sql_log_level":                   "warn",
	"database.pool.max_open_conns":             1,
	"database.pool.max_idle_conns":             1,
	"database.pool.conn_max_lifetime_seconds":  0,
	"database.pool.conn_max_idle_time_seconds": 0,

	"jwt.secret":            "change-me-in-production",
	"jwt.expire_hours":      24,
	"user_jwt.secret":       "user-change-me-in-production",
	"user_jwt.expire_hours": 24,

	"redis.enabled":  true,
	"redis.host":     "127.0.0.1",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,
	"redis.prefix":   "promo",

	"queue.enabled":     true,
	"queue.host":        "127.0.0.1",
	"queue.port":        6379,
	"queue.password":    "",
	"queue.db":          1,
	"queue.concurrency": 10,
	"queue.queues":      map[string]int{"default": 10, "critical": 5},

	"cors.allowed_origins":   []string{"*"},
	"cors.allowed_methods":   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	"cors.allowed_headers":   []string{"Content-Type", "Accept-Language", "Authorization", "X-Request-ID", "X-Requested-With"},
	"cors.allow_credentials": true,
	"cors.max_age":           600,

	"security.apply_rate_limit.window_seconds": 60,
	"security.apply_rate_limit.max_attempts":   20,

	"cart.ttl_hours":              72,
	"cart.currency":               "VND",
	"cart.sweep_interval_seconds": 300,
	"cart.sweep_batch_size":       100,

	"order.payment_expire_minutes": 15,
	"order.shipping_fee":           "0",
	"order.tax_rate_percent":       "0",
	"order.refund_usage_on_cancel": true,

	"promotion.currency_precision":    0,
	"promotion.bundle_cache_seconds":  60,
	"promotion.lock_ttl_ms":           5000,
	"promotion.max_codes_per_request": 10,
	"promotion.request_timeout_ms":    5000,

	"metrics.enabled": true,
	"metrics.path":    "/metrics",
}
