package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	UseClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() {
		_ = Close()
	})
	return mr
}

func TestJSONRoundTripUsesPrefix(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	if err := SetCartRef(ctx, "tok", CartRef{CartID: 5, Status: "open"}); err != nil {
		t.Fatalf("set cart ref failed: %v", err)
	}
	if !mr.Exists("test:cart:token:tok") {
		t.Fatalf("expected prefixed key to exist, keys=%v", mr.Keys())
	}
	ref, hit, err := GetCartRef(ctx, "tok")
	if err != nil || !hit {
		t.Fatalf("get cart ref failed: hit=%v err=%v", hit, err)
	}
	if ref.CartID != 5 || ref.Status != "open" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if err := DelCartRef(ctx, "tok"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, hit, _ := GetCartRef(ctx, "tok"); hit {
		t.Fatalf("expected cache miss after delete")
	}
}

func TestLockOwnership(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	ok, err := TryLock(ctx, "lock:cart:1", "owner-a", time.Second)
	if err != nil || !ok {
		t.Fatalf("expected first lock to succeed: ok=%v err=%v", ok, err)
	}
	ok, err = TryLock(ctx, "lock:cart:1", "owner-b", time.Second)
	if err != nil || ok {
		t.Fatalf("expected second lock to fail: ok=%v err=%v", ok, err)
	}
	released, err := Unlock(ctx, "lock:cart:1", "owner-b")
	if err != nil || released {
		t.Fatalf("foreign token must not release lock: released=%v err=%v", released, err)
	}
	released, err = Unlock(ctx, "lock:cart:1", "owner-a")
	if err != nil || !released {
		t.Fatalf("owner should release lock: released=%v err=%v", released, err)
	}

	ok, _ = TryLock(ctx, "lock:cart:2", "owner-a", 100*time.Millisecond)
	if !ok {
		t.Fatalf("expected lock on second key")
	}
	mr.FastForward(200 * time.Millisecond)
	ok, _ = TryLock(ctx, "lock:cart:2", "owner-b", time.Second)
	if !ok {
		t.Fatalf("expected lock to be available after ttl")
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	_ = Close()
	ctx := context.Background()
	var dest CartRef
	hit, err := GetJSON(ctx, "missing", &dest)
	if err != nil || hit {
		t.Fatalf("expected disabled cache miss, hit=%v err=%v", hit, err)
	}
	ok, err := TryLock(ctx, "k", "v", time.Second)
	if err != nil || ok {
		t.Fatalf("expected disabled lock to report false, ok=%v err=%v", ok, err)
	}
}
