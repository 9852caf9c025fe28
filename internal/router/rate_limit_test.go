package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func newRateLimitedEngine(client *redis.Client, max int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rule := RateLimitRule{Prefix: "test:rate:apply", WindowSeconds: 60, MaxRequests: max}
	r.POST("/carts/:token/promotions", RateLimitMiddleware(client, rule, KeyByIPAndParam("token")), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func doApply(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/carts/"+token+"/promotions", nil)
	req.RemoteAddr = "1.2.3.4:5678"
	r.ServeHTTP(w, req)
	return w
}

func TestKeyByIPAndParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/carts/abc/promotions", nil)
	c.Request.RemoteAddr = "1.2.3.4:5678"
	c.Params = gin.Params{{Key: "token", Value: " abc "}}

	if key := KeyByIPAndParam("token")(c); key != "abc|1.2.3.4" {
		t.Fatalf("key want abc|1.2.3.4 got %s", key)
	}
	if key := KeyByIPAndParam("missing")(c); key != "1.2.3.4" {
		t.Fatalf("key want ip fallback got %s", key)
	}
}

func TestRateLimitMiddlewareLocalFallback(t *testing.T) {
	r := newRateLimitedEngine(nil, 2)
	for i := 0; i < 2; i++ {
		if w := doApply(r, "cart-a"); !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("request %d should pass, got %s", i+1, w.Body.String())
		}
	}
	w := doApply(r, "cart-a")
	if !strings.Contains(w.Body.String(), `"status_code":429`) {
		t.Fatalf("third request should be limited, got %s", w.Body.String())
	}
	if w := doApply(r, "cart-b"); !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("other cart should pass, got %s", w.Body.String())
	}
}

func TestRateLimitMiddlewareWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := newRateLimitedEngine(client, 1)
	if w := doApply(r, "cart-a"); !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("first request should pass, got %s", w.Body.String())
	}
	w := doApply(r, "cart-a")
	if !strings.Contains(w.Body.String(), `"status_code":429`) {
		t.Fatalf("second request should be limited, got %s", w.Body.String())
	}
	if !mr.Exists("test:rate:apply:cart-a|1.2.3.4") {
		t.Fatalf("expected redis window key")
	}
}

func TestLocalWindowCounterResets(t *testing.T) {
	counter := newLocalWindowCounter()
	now := time.Now()
	counter.now = func() time.Time { return now }
	ctx := context.Background()

	if count, _, _ := counter.incr(ctx, "k", time.Minute); count != 1 {
		t.Fatalf("first count want 1 got %d", count)
	}
	now = now.Add(30 * time.Second)
	count, ttl, _ := counter.incr(ctx, "k", time.Minute)
	if count != 2 || ttl != 30 {
		t.Fatalf("second count want 2/30s got %d/%ds", count, ttl)
	}
	now = now.Add(31 * time.Second)
	if count, _, _ := counter.incr(ctx, "k", time.Minute); count != 1 {
		t.Fatalf("count after window want 1 got %d", count)
	}
}

func TestRateLimitMiddlewareFallsBackWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	r := newRateLimitedEngine(client, 1)
	if w := doApply(r, "cart-a"); !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("first request should pass via local counter, got %s", w.Body.String())
	}
	if w := doApply(r, "cart-a"); !strings.Contains(w.Body.String(), `"status_code":429`) {
		t.Fatalf("second request should be limited locally, got %s", w.Body.String())
	}
}
