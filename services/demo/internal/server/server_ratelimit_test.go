package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"demoapi/pkg/store"
	"demoapi/services/demo/internal/app"
)

func TestCreateRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	core, err := app.New(app.Config{Store: store.NewMemoryStore()})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{
		App:                      core,
		RedisAddr:                redis.Addr(),
		CreateRateLimitPerMinute: 1,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer srv.Close()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp1, _ := do(t, http.MethodPost, ts.URL+"/api/demo", `{"message":"one"}`)
	if resp1.StatusCode != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", resp1.StatusCode)
	}
	resp2, _ := do(t, http.MethodPost, ts.URL+"/api/demo/create", `{"message":"two"}`)
	if resp2.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", resp2.StatusCode)
	}
	if resp2.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	// reads are never limited
	resp3, _ := do(t, http.MethodGet, ts.URL+"/api/demo", "")
	if resp3.StatusCode != http.StatusOK {
		t.Fatalf("list expected 200, got %d", resp3.StatusCode)
	}
}

func TestServerRequiresRedisWhenLimitSet(t *testing.T) {
	core, err := app.New(app.Config{Store: store.NewMemoryStore()})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if _, err := New(Config{App: core, CreateRateLimitPerMinute: 1}); err == nil {
		t.Fatalf("expected limiter initialization to fail without redis addr")
	}
}
