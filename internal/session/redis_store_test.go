package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSaveAndLookupSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	data := Data{
		UpstreamToken: "upstream-bearer",
		UserID:        "user-123",
		UserName:      "avery",
		Roles:         []string{"operator"},
	}

	if err := store.SaveSession(ctx, "jti-1", data, time.Hour); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := store.LookupSession(ctx, "jti-1")
	if err != nil {
		t.Fatalf("LookupSession failed: %v", err)
	}
	if got.UpstreamToken != "upstream-bearer" {
		t.Errorf("expected upstream token to round-trip, got %q", got.UpstreamToken)
	}
	if got.UserID != "user-123" || len(got.Roles) != 1 || got.Roles[0] != "operator" {
		t.Errorf("unexpected session data: %+v", got)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.SaveSession(ctx, "jti-2", Data{UserID: "user-456"}, time.Millisecond); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	s.FastForward(2 * time.Millisecond)

	if _, err := store.LookupSession(ctx, "jti-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired session, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.SaveSession(ctx, "jti-3", Data{UserID: "user-789"}, time.Hour); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := store.RevokeSession(ctx, "jti-3"); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := store.LookupSession(ctx, "jti-3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after revoke, got %v", err)
	}
}

func TestRefreshSessionsAreIndependent(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.SaveRefresh(ctx, "hash-1", Data{UserID: "user-1"}, time.Hour); err != nil {
		t.Fatalf("SaveRefresh failed: %v", err)
	}

	// Access lookup under the same key must not see the refresh record.
	if _, err := store.LookupSession(ctx, "hash-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected access and refresh keyspaces to be separate, got %v", err)
	}

	got, err := store.LookupRefresh(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupRefresh failed: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("unexpected refresh data: %+v", got)
	}
}
