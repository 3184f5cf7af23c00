package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, http.NotFoundHandler())

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestReadyReportsChecks(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var payload map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &payload)
	if payload["ok"] != true {
		t.Fatalf("expected ok true, got %v", payload["ok"])
	}
}

func TestReadyFailsWhenRedisDown(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	env.redis.Close()

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	env := newTestEnv(t, http.NotFoundHandler())

	// Generate at least one observation first.
	env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "payadmin_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestDashboardStatsNormalizesAliases(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dashboard/stats" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total_merchants":    12,
			"activeMerchants":    9,
			"transaction_volume": "10500.75",
			"totalTransactions":  340,
		})
	}))
	token := env.authToken(t, "viewer")

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := env.do(t, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["totalMerchants"] != float64(12) {
		t.Fatalf("expected totalMerchants 12, got %v", payload["totalMerchants"])
	}
	if payload["activeMerchants"] != float64(9) {
		t.Fatalf("expected activeMerchants 9, got %v", payload["activeMerchants"])
	}
	if payload["transactionVolume"] != float64(10500.75) {
		t.Fatalf("expected transactionVolume coerced, got %v", payload["transactionVolume"])
	}
	if payload["pendingDisbursements"] != float64(0) {
		t.Fatalf("expected absent stat to default to 0, got %v", payload["pendingDisbursements"])
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	env := newTestEnv(t, http.NotFoundHandler())
	token := env.authToken(t, "admin")

	req := httptest.NewRequest(http.MethodGet, "/api/nonsense", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := env.do(t, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	var payload map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &payload)
	if payload["code"] != "NOT_FOUND" {
		t.Fatalf("expected code NOT_FOUND, got %v", payload["code"])
	}
}
