package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dujiao-next/promoengine/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "promo"

// store 当前生效的 Redis 连接与键前缀；为 nil 时所有缓存操作降级为空操作
type store struct {
	client *redis.Client
	prefix string
}

var active atomic.Pointer[store]

// InitRedis 按配置连接 Redis，未启用时保持降级状态
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		active.Store(nil)
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	UseClient(redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.Prefix)
	return nil
}

// UseClient 注入已有客户端，测试中配合 miniredis 使用
func UseClient(client *redis.Client, prefix string) {
	if client == nil {
		active.Store(nil)
		return
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	active.Store(&store{client: client, prefix: prefix})
}

// Close 关闭连接并回到降级状态
func Close() error {
	s := active.Swap(nil)
	if s == nil {
		return nil
	}
	return s.client.Close()
}

// Enabled 缓存是否可用
func Enabled() bool {
	return active.Load() != nil
}

// Client 返回底层客户端，未启用时为 nil
func Client() *redis.Client {
	if s := active.Load(); s != nil {
		return s.client
	}
	return nil
}

// GetJSON 读取并反序列化，未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	s := active.Load()
	if s == nil {
		return false, nil
	}
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 序列化写入
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s := active.Load()
	if s == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), payload, ttl).Err()
}

// Del 删除键
func Del(ctx context.Context, key string) error {
	s := active.Load()
	if s == nil {
		return nil
	}
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *store) key(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.prefix
	}
	return s.prefix + ":" + key
}
