package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dujiao-next/promoengine/internal/cache"
	"github.com/dujiao-next/promoengine/internal/logger"

	"github.com/google/uuid"
)

const (
	defaultLockTTL   = 5 * time.Second
	defaultLockWait  = 2 * time.Second
	lockPollInterval = 20 * time.Millisecond
)

// RedeemableLocker 可核销对象级别的互斥锁
type RedeemableLocker interface {
	Acquire(ctx context.Context, redeemableType string, redeemableID uint) (func(), error)
}

// HybridRedeemableLocker Redis 启用时使用分布式锁，否则退化为进程内锁
type HybridRedeemableLocker struct {
	ttl  time.Duration
	wait time.Duration

	mu    sync.Mutex
	local map[string]*localSlot
}

// localSlot 进程内锁槽位，refs 为持有者与等待者数量，归零时移除
type localSlot struct {
	ch   chan struct{}
	refs int
}

// NewRedeemableLocker 创建可核销对象锁
func NewRedeemableLocker(ttl, wait time.Duration) *HybridRedeemableLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &HybridRedeemableLocker{
		ttl:   ttl,
		wait:  wait,
		local: make(map[string]*localSlot),
	}
}

func redeemableLockKey(redeemableType string, redeemableID uint) string {
	return fmt.Sprintf("lock:redeemable:%s:%d", redeemableType, redeemableID)
}

// Acquire 获取锁，等待超时返回 ErrPromotionConcurrencyConflict
func (l *HybridRedeemableLocker) Acquire(ctx context.Context, redeemableType string, redeemableID uint) (func(), error) {
	key := redeemableLockKey(redeemableType, redeemableID)
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	if cache.Enabled() {
		return l.acquireRedis(waitCtx, key)
	}
	return l.acquireLocal(waitCtx, key)
}

func (l *HybridRedeemableLocker) acquireRedis(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := cache.TryLock(ctx, key, token, l.ttl)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrPromotionConcurrencyConflict
			}
			return nil, err
		}
		if ok {
			return func() {
				if _, err := cache.Unlock(context.Background(), key, token); err != nil {
					logger.Warnw("redeemable_lock_release_failed", "key", key, "error", err)
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrPromotionConcurrencyConflict
		case <-time.After(lockPollInterval):
		}
	}
}

func (l *HybridRedeemableLocker) acquireLocal(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.local[key]
	if !ok {
		slot = &localSlot{ch: make(chan struct{}, 1)}
		l.local[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.dropLocal(key, slot)
			})
		}, nil
	case <-ctx.Done():
		l.dropLocal(key, slot)
		return nil, ErrPromotionConcurrencyConflict
	}
}

func (l *HybridRedeemableLocker) dropLocal(key string, slot *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 && l.local[key] == slot {
		delete(l.local, key)
	}
}

// localKeys 当前进程内锁槽位数量
func (l *HybridRedeemableLocker) localKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.local)
}
