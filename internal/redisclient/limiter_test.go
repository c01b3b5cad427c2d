package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLimiter_FixedWindow(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis limiter test")
	}

	c := New(Config{Addr: addr})
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	l := NewLimiter(c, 2, time.Minute)
	key := "test|" + uuid.NewString()
	t.Cleanup(func() { c.Raw().Del(context.Background(), keyPrefix+key) })

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, key)
		if err != nil || !ok {
			t.Fatalf("call %d: ok=%v err=%v", i, ok, err)
		}
	}

	ok, retry, err := l.Allow(ctx, key)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok {
		t.Fatalf("third call in window should be limited")
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("retry after out of range: %s", retry)
	}

	if ok, _, err := l.Allow(ctx, key+"-other"); err != nil || !ok {
		t.Fatalf("keys are limited independently: ok=%v err=%v", ok, err)
	}
	c.Raw().Del(context.Background(), keyPrefix+key+"-other")
}
