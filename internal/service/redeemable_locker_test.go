package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dujiao-next/promoengine/internal/cache"
	"github.com/dujiao-next/promoengine/internal/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalLockerSerializesSameRedeemable(t *testing.T) {
	_ = cache.Close()
	locker := NewRedeemableLocker(time.Second, 50*time.Millisecond)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, constants.RedeemableTypeCart, 1)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if _, err := locker.Acquire(ctx, constants.RedeemableTypeCart, 1); !errors.Is(err, ErrPromotionConcurrencyConflict) {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}
	other, err := locker.Acquire(ctx, constants.RedeemableTypeCart, 2)
	if err != nil {
		t.Fatalf("other redeemable should not be blocked: %v", err)
	}
	other()

	release()
	release()
	again, err := locker.Acquire(ctx, constants.RedeemableTypeCart, 1)
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	again()
}

func TestLocalLockerReleasesIdleSlots(t *testing.T) {
	_ = cache.Close()
	locker := NewRedeemableLocker(time.Second, 50*time.Millisecond)
	ctx := context.Background()

	for id := uint(1); id <= 50; id++ {
		release, err := locker.Acquire(ctx, constants.RedeemableTypeCart, id)
		if err != nil {
			t.Fatalf("acquire %d failed: %v", id, err)
		}
		release()
	}
	if got := locker.localKeys(); got != 0 {
		t.Fatalf("expected idle slots removed, got %d", got)
	}

	held, err := locker.Acquire(ctx, constants.RedeemableTypeOrder, 9)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if _, err := locker.Acquire(ctx, constants.RedeemableTypeOrder, 9); !errors.Is(err, ErrPromotionConcurrencyConflict) {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}
	if got := locker.localKeys(); got != 1 {
		t.Fatalf("expected held slot kept after waiter timeout, got %d", got)
	}
	held()
	if got := locker.localKeys(); got != 0 {
		t.Fatalf("expected slot removed after release, got %d", got)
	}
}

func TestRedisLockerUsesSharedKey(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.UseClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { _ = cache.Close() })

	locker := NewRedeemableLocker(time.Second, 100*time.Millisecond)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, constants.RedeemableTypeOrder, 5)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !mr.Exists("test:lock:redeemable:order:5") {
		t.Fatalf("expected redis lock key")
	}
	// 另一个实例共享同一把锁
	peer := NewRedeemableLocker(time.Second, 100*time.Millisecond)
	if _, err := peer.Acquire(ctx, constants.RedeemableTypeOrder, 5); !errors.Is(err, ErrPromotionConcurrencyConflict) {
		t.Fatalf("expected concurrency conflict from peer, got %v", err)
	}
	release()
	if mr.Exists("test:lock:redeemable:order:5") {
		t.Fatalf("expected lock key removed after release")
	}
	peerRelease, err := peer.Acquire(ctx, constants.RedeemableTypeOrder, 5)
	if err != nil {
		t.Fatalf("peer acquire after release failed: %v", err)
	}
	peerRelease()
}
