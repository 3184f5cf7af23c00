package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"payadmin/api/internal/cache"
	"payadmin/api/internal/config"
	"payadmin/api/internal/session"
	"payadmin/api/internal/upstream"
)

// testEnv wires a full server against a fake upstream and an in-process redis.
type testEnv struct {
	server   *HTTPServer
	service  *Service
	redis    *miniredis.Miniredis
	upstream *httptest.Server
}

func newTestEnv(t *testing.T, upstreamHandler http.Handler) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	fake := httptest.NewServer(upstreamHandler)
	t.Cleanup(fake.Close)

	cfg := config.Config{
		UpstreamURL:     fake.URL,
		JWTSecret:       "test-secret",
		AccessTTL:       time.Hour,
		RefreshTTL:      24 * time.Hour,
		CORSOrigin:      "*",
		UpstreamTimeout: 5 * time.Second,
		CacheTTL:        time.Minute,
	}

	svc := New(
		cfg,
		config.DefaultConventions(),
		upstream.New(fake.URL, cfg.UpstreamTimeout),
		session.NewRedisStoreWithClient(client),
		cache.New(client, cfg.CacheTTL),
	)

	return &testEnv{
		server:   NewHTTPServer(svc, "*"),
		service:  svc,
		redis:    mr,
		upstream: fake,
	}
}

// authToken mints a live session without going through the upstream login.
func (e *testEnv) authToken(t *testing.T, roles ...string) string {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{"admin"}
	}
	sess, err := e.service.mintSession(context.Background(), session.Data{
		UpstreamToken: "upstream-token",
		UserID:        "user-1",
		UserName:      "ops",
		Roles:         roles,
	})
	if err != nil {
		t.Fatalf("mint session: %v", err)
	}
	return sess.Token
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}
