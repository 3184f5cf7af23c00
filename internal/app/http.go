package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"payadmin/api/internal/rbac"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	metrics    http.Handler
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		metrics:    promhttp.Handler(),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

// listFilters are the query parameters forwarded to upstream list endpoints.
// Anything outside this set stays local so console-only knobs (page, size,
// cache control) never leak upstream.
var listFilters = []string{"status", "merchantCode", "channel", "currency", "search", "dateFrom", "dateTo", "type"}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/metrics" {
		s.metrics.ServeHTTP(w, r)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		s.handleLogin(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(session))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		session := Session{}
		if token := bearerToken(r); token != "" {
			if parsed, err := s.service.SessionFromToken(r.Context(), token); err == nil {
				session = parsed
			}
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), session, body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userName":      session.UserName,
			"userId":        session.UserID,
			"roles":         session.Roles,
		})
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	rest := parts[2:]

	switch parts[1] {
	case "merchants":
		s.handleMerchants(w, r, session, rest)
	case "disbursements":
		s.handleDisbursements(w, r, session, rest)
	case "transactions":
		s.handleTransactions(w, r, session, rest)
	case "gateways":
		s.handleGateways(w, r, session, rest)
	case "users":
		s.handleUsers(w, r, session, rest)
	case "roles":
		if r.Method != http.MethodGet || len(rest) != 0 {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.ListRoles(r.Context(), session)
		})
	case "dashboard":
		if r.Method != http.MethodGet || len(rest) != 1 || rest[0] != "stats" {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.DashboardStats(r.Context(), session)
		})
	case "logs":
		if r.Method != http.MethodGet || len(rest) != 0 {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.ListAuditLogs(r.Context(), session, s.listParams(r, "logs"))
		})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"redis":    map[string]any{"status": "ok"},
		"upstream": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["redis"] = map[string]any{"status": "error", "error": err.Error()}
	}
	if err := s.service.PingUpstream(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["upstream"] = map[string]any{"status": "error", "error": err.Error()}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"userId":       session.UserID,
		"userName":     session.UserName,
		"roles":        session.Roles,
		"expiresAt":    session.ExpiresAt.Unix(),
	}
}

// ── Merchants ──

func (s *HTTPServer) handleMerchants(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.ListMerchants(r.Context(), session, s.listParams(r, "merchants"))
		})
	case len(rest) == 0 && r.Method == http.MethodPost:
		body, err := decodeObject(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, session, rbac.ActionWrite, func() (any, error) {
			return s.service.CreateMerchant(r.Context(), session, body)
		})
	case len(rest) == 1 && rest[0] == "export" && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.ExportMerchants(r.Context(), session, filterValues(r))
		})
	case len(rest) == 1 && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.GetMerchant(r.Context(), session, rest[0])
		})
	case len(rest) == 1 && r.Method == http.MethodPut:
		body, err := decodeObject(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, session, rbac.ActionWrite, func() (any, error) {
			return s.service.UpdateMerchant(r.Context(), session, rest[0], body)
		})
	case len(rest) == 2 && rest[1] == "status" && r.Method == http.MethodPost:
		var body struct {
			Status string `json:"status"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, session, rbac.ActionApprove, func() (any, error) {
			return s.service.UpdateMerchantStatus(r.Context(), session, rest[0], body.Status)
		})
	case len(rest) == 2 && rest[1] == "audit-trail" && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.MerchantAuditTrail(r.Context(), session, rest[0])
		})
	case len(rest) == 2 && rest[1] == "bank-accounts" && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.ListBankAccounts(r.Context(), session, rest[0])
		})
	case len(rest) == 2 && rest[1] == "bank-accounts" && r.Method == http.MethodPost:
		body, err := decodeObject(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, session, rbac.ActionWrite, func() (any, error) {
			return s.service.CreateBankAccount(r.Context(), session, rest[0], body)
		})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Disbursements ──

func (s *HTTPServer) handleDisbursements(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.ListDisbursements(r.Context(), session, s.listParams(r, "disbursements"))
		})
	case len(rest) == 0 && r.Method == http.MethodPost:
		body, err := decodeObject(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, session, rbac.ActionWrite, func() (any, error) {
			return s.service.CreateDisbursement(r.Context(), session, body)
		})
	case len(rest) == 1 && rest[0] == "export" && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.ExportDisbursements(r.Context(), session, filterValues(r))
		})
	case len(rest) == 1 && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.GetDisbursement(r.Context(), session, rest[0])
		})
	case len(rest) == 2 && (rest[1] == "approve" || rest[1] == "reject") && r.Method == http.MethodPost:
		var body struct {
			Comment string `json:"comment"`
		}
		_ = decodeBody(r, &body)
		s.respond(w, session, rbac.ActionApprove, func() (any, error) {
			return s.service.TransitionDisbursement(r.Context(), session, rest[0], rest[1], body.Comment)
		})
	case len(rest) == 2 && rest[1] == "history" && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.DisbursementHistory(r.Context(), session, rest[0])
		})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Transactions ──

func (s *HTTPServer) handleTransactions(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	switch {
	case len(rest) == 0:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.ListTransactions(r.Context(), session, s.listParams(r, "transactions"))
		})
	case len(rest) == 1 && rest[0] == "export":
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.ExportTransactions(r.Context(), session, filterValues(r))
		})
	case len(rest) == 1:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.GetTransaction(r.Context(), session, rest[0])
		})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Payment gateways ──

func (s *HTTPServer) handleGateways(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.ListGateways(r.Context(), session, s.listParams(r, "gateways"))
		})
	case len(rest) == 0 && r.Method == http.MethodPost:
		body, err := decodeObject(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, session, rbac.ActionAdmin, func() (any, error) {
			return s.service.CreateGateway(r.Context(), session, body)
		})
	case len(rest) == 1 && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.GetGateway(r.Context(), session, rest[0])
		})
	case len(rest) == 1 && r.Method == http.MethodPut:
		body, err := decodeObject(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, session, rbac.ActionAdmin, func() (any, error) {
			return s.service.UpdateGateway(r.Context(), session, rest[0], body)
		})
	case len(rest) == 1 && r.Method == http.MethodDelete:
		s.respond(w, session, rbac.ActionAdmin, func() (any, error) {
			if err := s.service.DeleteGateway(r.Context(), session, rest[0]); err != nil {
				return nil, err
			}
			return map[string]any{"ok": true}, nil
		})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Users ──

func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.ListUsers(r.Context(), session, s.listParams(r, "users"))
		})
	case len(rest) == 0 && r.Method == http.MethodPost:
		body, err := decodeObject(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, session, rbac.ActionAdmin, func() (any, error) {
			return s.service.CreateUser(r.Context(), session, body)
		})
	case len(rest) == 1 && r.Method == http.MethodGet:
		s.respond(w, session, rbac.ActionRead, func() (any, error) {
			return s.service.GetUser(r.Context(), session, rest[0])
		})
	case len(rest) == 1 && r.Method == http.MethodPut:
		body, err := decodeObject(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, session, rbac.ActionAdmin, func() (any, error) {
			return s.service.UpdateUser(r.Context(), session, rest[0], body)
		})
	case len(rest) == 1 && r.Method == http.MethodDelete:
		s.respond(w, session, rbac.ActionAdmin, func() (any, error) {
			if err := s.service.DeleteUser(r.Context(), session, rest[0]); err != nil {
				return nil, err
			}
			return map[string]any{"ok": true}, nil
		})
	case len(rest) == 2 && rest[1] == "roles" && r.Method == http.MethodPut:
		var body struct {
			Roles []string `json:"roles"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, session, rbac.ActionAdmin, func() (any, error) {
			return s.service.AssignUserRoles(r.Context(), session, rest[0], body.Roles)
		})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Plumbing ──

// respond gates on RBAC, runs the operation, and writes either the payload or
// the mapped domain error.
func (s *HTTPServer) respond(w http.ResponseWriter, session Session, action rbac.Action, op func() (any, error)) {
	if !rbac.CanAny(session.Roles, action) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return
	}
	payload, err := op()
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) listParams(r *http.Request, resource string) ListParams {
	page := s.service.DefaultPage(resource)
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}
	size := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("size")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			size = parsed
		}
	}
	return ListParams{
		Page:    page,
		Size:    size,
		Filters: filterValues(r),
		NoCache: strings.Contains(strings.ToLower(r.Header.Get("Cache-Control")), "no-cache"),
	}
}

func filterValues(r *http.Request) map[string]string {
	filters := map[string]string{}
	for _, key := range listFilters {
		if value := strings.TrimSpace(r.URL.Query().Get(key)); value != "" {
			filters[key] = value
		}
	}
	return filters
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		elapsed := time.Since(started)
		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(writer.status)).Inc()
		requestDuration.WithLabelValues(r.Method).Observe(elapsed.Seconds())

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			elapsed.Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, Cache-Control")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		// An absent body is not malformed JSON; optional-body routes
		// proceed with the target's zero value.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// decodeObject reads a free-form JSON object body. Forwarded mutation bodies
// are not bound to structs: unknown fields pass through to upstream untouched.
func decodeObject(r *http.Request) (map[string]any, error) {
	body := map[string]any{}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
