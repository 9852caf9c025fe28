package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// unlockScript 仅当持有者令牌一致时删除锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock 尝试获取分布式锁，未启用 Redis 时返回 false
func TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	s := active.Load()
	if s == nil {
		return false, nil
	}
	return s.client.SetNX(ctx, s.key(key), token, ttl).Result()
}

// Unlock 释放分布式锁
func Unlock(ctx context.Context, key, token string) (bool, error) {
	s := active.Load()
	if s == nil {
		return false, nil
	}
	deleted, err := unlockScript.Run(ctx, s.client, []string{s.key(key)}, token).Int()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}
