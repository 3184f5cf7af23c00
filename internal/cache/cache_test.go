package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return New(client, time.Minute), s
}

func TestKeyDeterministic(t *testing.T) {
	a := Key(map[string]string{"page": "0", "size": "15", "status": "ACTIVE"})
	b := Key(map[string]string{"status": "ACTIVE", "size": "15", "page": "0"})
	if a != b {
		t.Errorf("equivalent parameter sets must produce the same key")
	}

	c := Key(map[string]string{"page": "1", "size": "15", "status": "ACTIVE"})
	if a == c {
		t.Errorf("different parameters must produce different keys")
	}
}

func TestKeyIgnoresBlankParams(t *testing.T) {
	a := Key(map[string]string{"page": "0", "search": ""})
	b := Key(map[string]string{"page": "0"})
	if a != b {
		t.Errorf("blank parameters must not change the key")
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	c, s := setupCache(t)
	defer s.Close()

	ctx := context.Background()
	key := Key(map[string]string{"page": "0"})
	c.Set(ctx, "merchants", key, []byte(`{"data":[]}`))

	payload, hit := c.Get(ctx, "merchants", key)
	if !hit {
		t.Fatal("expected cache hit")
	}
	if string(payload) != `{"data":[]}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestGetMiss(t *testing.T) {
	c, s := setupCache(t)
	defer s.Close()

	if _, hit := c.Get(context.Background(), "merchants", "nope"); hit {
		t.Error("expected miss for unknown key")
	}
}

func TestTTLExpiry(t *testing.T) {
	c, s := setupCache(t)
	defer s.Close()

	ctx := context.Background()
	c.Set(ctx, "merchants", "k", []byte("v"))
	s.FastForward(2 * time.Minute)

	if _, hit := c.Get(ctx, "merchants", "k"); hit {
		t.Error("expected entry to expire")
	}
}

func TestInvalidateResourceScoped(t *testing.T) {
	c, s := setupCache(t)
	defer s.Close()

	ctx := context.Background()
	c.Set(ctx, "merchants", "k1", []byte("a"))
	c.Set(ctx, "merchants", "k2", []byte("b"))
	c.Set(ctx, "gateways", "k1", []byte("c"))

	if err := c.Invalidate(ctx, "merchants"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	if _, hit := c.Get(ctx, "merchants", "k1"); hit {
		t.Error("merchants k1 should be invalidated")
	}
	if _, hit := c.Get(ctx, "merchants", "k2"); hit {
		t.Error("merchants k2 should be invalidated")
	}
	if _, hit := c.Get(ctx, "gateways", "k1"); !hit {
		t.Error("other resources must survive invalidation")
	}
}
