package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/promoengine/internal/http/response"
	"github.com/dujiao-next/promoengine/internal/i18n"
	"github.com/dujiao-next/promoengine/internal/logger"
	"github.com/dujiao-next/promoengine/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const localWindowSweepThreshold = 10000

// RateLimitKeyFunc 从请求中提取限流维度
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
}

// windowCounter 对 key 计数，返回当前窗口内的次数与剩余秒数
type windowCounter interface {
	incr(ctx context.Context, key string, window time.Duration) (int64, int64, error)
}

// RateLimitMiddleware 有 Redis 时多实例共享计数；Redis 出错时退回本进程计数
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := newLocalWindowCounter()
	var shared windowCounter
	if client != nil {
		shared = &redisWindowCounter{client: client}
	}
	window := time.Duration(rule.WindowSeconds) * time.Second
	msgKey := strings.TrimSpace(rule.MessageKey)
	if msgKey == "" {
		msgKey = "error.rate_limited"
	}

	return func(c *gin.Context) {
		key := c.ClientIP()
		if keyFunc != nil {
			if k := strings.TrimSpace(keyFunc(c)); k != "" {
				key = k
			}
		}
		if rule.Prefix != "" {
			key = rule.Prefix + ":" + key
		}

		var (
			count, ttl int64
			err        error
		)
		if shared != nil {
			count, ttl, err = shared.incr(c.Request.Context(), key, window)
			if err != nil {
				logger.Warnw("rate_limit_redis_failed", "key", key, "error", err)
			}
		}
		if shared == nil || err != nil {
			count, ttl, _ = local.incr(c.Request.Context(), key, window)
		}

		if count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}
		wait := ttl
		if wait < 1 {
			wait = int64(rule.WindowSeconds)
		}
		metrics.ObserveRateLimited(rule.Prefix)
		response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, wait))
		c.Abort()
	}
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("TTL", KEYS[1])}
`)

type redisWindowCounter struct {
	client *redis.Client
}

func (r *redisWindowCounter) incr(ctx context.Context, key string, window time.Duration) (int64, int64, error) {
	values, err := rateLimitScript.Run(ctx, r.client, []string{key}, int(window/time.Second)).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("rate limit script returned %d values", len(values))
	}
	return values[0], values[1], nil
}

// localWindowCounter 单实例计数，窗口过期后惰性重置
type localWindowCounter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]localWindow
}

type localWindow struct {
	count     int64
	expiresAt time.Time
}

func newLocalWindowCounter() *localWindowCounter {
	return &localWindowCounter{now: time.Now, windows: make(map[string]localWindow)}
}

func (l *localWindowCounter) incr(_ context.Context, key string, window time.Duration) (int64, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		if len(l.windows) > localWindowSweepThreshold {
			for k, v := range l.windows {
				if !now.Before(v.expiresAt) {
					delete(l.windows, k)
				}
			}
		}
		w = localWindow{expiresAt: now.Add(window)}
	}
	w.count++
	l.windows[key] = w
	return w.count, int64(w.expiresAt.Sub(now) / time.Second), nil
}

// KeyByIPAndParam 以路由参数 + 客户端 IP 为维度，参数为空时仅用 IP
func KeyByIPAndParam(param string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		if value := strings.TrimSpace(c.Param(param)); value != "" {
			return value + "|" + c.ClientIP()
		}
		return c.ClientIP()
	}
}
