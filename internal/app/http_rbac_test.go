package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// permissiveUpstream answers every forwarded call with an empty object so the
// tests below exercise only the console's own gate.
func permissiveUpstream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})
}

func TestRoleGates(t *testing.T) {
	env := newTestEnv(t, permissiveUpstream())

	cases := []struct {
		name   string
		role   string
		method string
		path   string
		body   string
		want   int
	}{
		{"viewer reads merchants", "viewer", http.MethodGet, "/api/merchants", "", http.StatusOK},
		{"viewer cannot create merchants", "viewer", http.MethodPost, "/api/merchants", `{"code":"A","name":"B"}`, http.StatusForbidden},
		{"operator creates merchants", "operator", http.MethodPost, "/api/merchants", `{"code":"A","name":"B"}`, http.StatusOK},
		{"operator cannot approve", "operator", http.MethodPost, "/api/disbursements/d1/approve", `{}`, http.StatusForbidden},
		{"finance approves", "finance", http.MethodPost, "/api/disbursements/d1/approve", `{}`, http.StatusOK},
		{"finance cannot manage users", "finance", http.MethodDelete, "/api/users/u1", "", http.StatusForbidden},
		{"admin manages users", "admin", http.MethodDelete, "/api/users/u1", "", http.StatusOK},
		{"finance cannot create gateways", "finance", http.MethodPost, "/api/gateways", `{"code":"G","name":"Gate"}`, http.StatusForbidden},
		{"admin creates gateways", "admin", http.MethodPost, "/api/gateways", `{"code":"G","name":"Gate"}`, http.StatusOK},
		{"unknown role falls back to viewer", "mystery", http.MethodGet, "/api/transactions", "", http.StatusOK},
		{"unknown role cannot write", "mystery", http.MethodPost, "/api/merchants", `{"code":"A","name":"B"}`, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := env.authToken(t, tc.role)
			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
			} else {
				req = httptest.NewRequest(tc.method, tc.path, nil)
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Cache-Control", "no-cache")

			rr := env.do(t, req)
			if rr.Code != tc.want {
				t.Fatalf("expected status %d, got %d body=%s", tc.want, rr.Code, rr.Body.String())
			}
		})
	}
}
