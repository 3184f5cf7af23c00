package app

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"payadmin/api/internal/auth"
	"payadmin/api/internal/cache"
	"payadmin/api/internal/config"
	"payadmin/api/internal/export"
	"payadmin/api/internal/normalize"
	"payadmin/api/internal/session"
	"payadmin/api/internal/upstream"
)

// Session is the per-request security context: the console's own tokens plus
// the upstream bearer token they stand for. Read-only to handlers.
type Session struct {
	Token         string
	RefreshToken  string
	UserID        string
	UserName      string
	Roles         []string
	UpstreamToken string
	JTI           string
	ExpiresAt     time.Time
}

// SessionStore is the Redis-backed session keyspace.
type SessionStore interface {
	SaveSession(ctx context.Context, jti string, data session.Data, ttl time.Duration) error
	LookupSession(ctx context.Context, jti string) (session.Data, error)
	RevokeSession(ctx context.Context, jti string) error
	SaveRefresh(ctx context.Context, tokenHash string, data session.Data, ttl time.Duration) error
	LookupRefresh(ctx context.Context, tokenHash string) (session.Data, error)
	RevokeRefresh(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
}

// QueryCache memoizes normalized list/detail payloads.
type QueryCache interface {
	Get(ctx context.Context, resource, key string) ([]byte, bool)
	Set(ctx context.Context, resource, key string, payload []byte)
	Invalidate(ctx context.Context, resource string) error
}

type Service struct {
	cfg         config.Config
	conventions config.Conventions
	up          *upstream.Client
	sessions    SessionStore
	cache       QueryCache
	now         func() time.Time
}

func New(cfg config.Config, conventions config.Conventions, up *upstream.Client, sessions SessionStore, queryCache QueryCache) *Service {
	return &Service{
		cfg:         cfg,
		conventions: conventions,
		up:          up,
		sessions:    sessions,
		cache:       queryCache,
		now:         time.Now,
	}
}

// DefaultPage is the first page number in a resource's client convention.
func (s *Service) DefaultPage(resource string) int {
	return s.conventions.For(resource).PageBase
}

func (s *Service) Ping(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

func (s *Service) PingUpstream(ctx context.Context) error {
	return s.up.Ping(ctx)
}

// ── Auth ──

func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return Session{}, errValidation("username and password are required")
	}

	var raw map[string]any
	err := s.up.Post(ctx, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &raw)
	if err != nil {
		return Session{}, fromUpstream(err)
	}

	upstreamToken := normalize.StringAlias(raw, "accessToken", "access_token", "token")
	if upstreamToken == "" {
		return Session{}, errMalformedUpstream("login response missing access token")
	}

	identity := raw
	if user, ok := raw["user"].(map[string]any); ok {
		identity = user
	}
	data := session.Data{
		UpstreamToken: upstreamToken,
		UserID:        normalize.StringAlias(identity, "userId", "user_id", "id"),
		UserName:      normalize.StringAlias(identity, "username", "userName", "name"),
		Roles:         normalize.StringsAlias(identity, "roles", "authorities", "role"),
	}

	return s.mintSession(ctx, data)
}

func (s *Service) mintSession(ctx context.Context, data session.Data) (Session, error) {
	jti := uuid.NewString()
	expiresAt := s.now().Add(s.cfg.AccessTTL)

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   data.UserID,
		Name:  data.UserName,
		Roles: data.Roles,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, domainError(500, "SERVER_ERROR", "Could not issue token", nil)
	}

	if err := s.sessions.SaveSession(ctx, jti, data, s.cfg.AccessTTL); err != nil {
		return Session{}, domainError(500, "SERVER_ERROR", "Could not store session", nil)
	}

	refreshToken := uuid.NewString()
	if err := s.sessions.SaveRefresh(ctx, auth.HashToken(refreshToken), data, s.cfg.RefreshTTL); err != nil {
		return Session{}, domainError(500, "SERVER_ERROR", "Could not store session", nil)
	}

	return Session{
		Token:         token,
		RefreshToken:  refreshToken,
		UserID:        data.UserID,
		UserName:      data.UserName,
		Roles:         data.Roles,
		UpstreamToken: data.UpstreamToken,
		JTI:           jti,
		ExpiresAt:     expiresAt,
	}, nil
}

// SessionFromToken validates an access token and resolves the redis-held
// session it refers to. A parseable token whose session is gone is treated as
// unauthorized, not an error.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, errUnauthorized("")
	}

	data, err := s.sessions.LookupSession(ctx, claims.JTI)
	if err != nil {
		return Session{}, errUnauthorized("Session expired")
	}

	return Session{
		Token:         token,
		UserID:        data.UserID,
		UserName:      data.UserName,
		Roles:         data.Roles,
		UpstreamToken: data.UpstreamToken,
		JTI:           claims.JTI,
		ExpiresAt:     time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, errUnauthorized("")
	}
	hash := auth.HashToken(refreshToken)
	data, err := s.sessions.LookupRefresh(ctx, hash)
	if err != nil {
		return Session{}, errUnauthorized("Refresh token invalid")
	}
	// Rotate: the old refresh token is single-use.
	_ = s.sessions.RevokeRefresh(ctx, hash)
	return s.mintSession(ctx, data)
}

func (s *Service) Logout(ctx context.Context, sess Session, refreshToken string) error {
	if sess.JTI != "" {
		_ = s.sessions.RevokeSession(ctx, sess.JTI)
	}
	if strings.TrimSpace(refreshToken) != "" {
		_ = s.sessions.RevokeRefresh(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// ── Generic forwarding ──

// ListParams carries a list call's client-convention page plus optional filters.
type ListParams struct {
	Page    int
	Size    int
	Filters map[string]string
	NoCache bool
}

// list forwards a list call, unwraps whatever envelope came back, maps fields,
// and shifts pagination into the resource's client convention. Kind "" skips
// field mapping (passthrough resources).
func (s *Service) list(ctx context.Context, sess Session, resource, path string, kind normalize.Kind, params ListParams) (map[string]any, error) {
	conv := normalize.Convention{Base: s.conventions.For(resource).PageBase}
	upstreamPage := conv.FromClient(params.Page)
	size := params.Size
	if size <= 0 {
		size = normalize.DefaultPageSize
	}

	cacheParams := map[string]string{
		"page": strconv.Itoa(upstreamPage),
		"size": strconv.Itoa(size),
	}
	for k, v := range params.Filters {
		cacheParams[k] = v
	}
	cacheKey := cache.Key(cacheParams)

	if s.cache != nil && !params.NoCache {
		if payload, hit := s.cache.Get(ctx, resource, cacheKey); hit {
			var cached map[string]any
			if json.Unmarshal(payload, &cached) == nil {
				return cached, nil
			}
		}
	}

	query := upstream.Query(params.Filters)
	query.Set("page", strconv.Itoa(upstreamPage))
	query.Set("size", strconv.Itoa(size))

	var raw any
	if err := s.up.Get(ctx, path, query, sess.UpstreamToken, &raw); err != nil {
		return nil, fromUpstream(err)
	}

	col := normalize.Unwrap(raw, upstreamPage, size)
	items := make([]any, 0, len(col.Items))
	for _, item := range col.Items {
		if kind == "" {
			items = append(items, item)
			continue
		}
		record, _ := item.(map[string]any)
		items = append(items, normalize.MapFields(kind, record))
	}

	meta := conv.ToClient(col.Meta)
	payload := map[string]any{
		"data":          items,
		"pageNumber":    meta.PageNumber,
		"pageSize":      meta.PageSize,
		"totalElements": meta.TotalElements,
		"totalPages":    meta.TotalPages,
		"first":         meta.First,
		"last":          meta.Last,
	}

	if s.cache != nil && !params.NoCache {
		if encoded, err := json.Marshal(payload); err == nil {
			s.cache.Set(ctx, resource, cacheKey, encoded)
		}
	}
	return payload, nil
}

// get forwards a detail call. Detail endpoints must return an object; anything
// else is a malformed upstream response, unlike list calls which degrade to an
// empty page.
func (s *Service) get(ctx context.Context, sess Session, path string, kind normalize.Kind) (map[string]any, error) {
	var raw any
	if err := s.up.Get(ctx, path, nil, sess.UpstreamToken, &raw); err != nil {
		return nil, fromUpstream(err)
	}

	record, ok := raw.(map[string]any)
	if !ok {
		return nil, errMalformedUpstream("expected an object response")
	}
	if inner, ok := record["data"].(map[string]any); ok {
		record = inner
	}
	if kind == "" {
		return record, nil
	}
	return normalize.MapFields(kind, record), nil
}

// invalidate drops a resource's cached pages after a mutation.
func (s *Service) invalidate(ctx context.Context, resource string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, resource); err != nil {
		log.Printf("cache: invalidate %s: %v", resource, err)
	}
}

// history fetches a string-array history feed and synthesizes structured
// entries using the resource's shaping convention.
func (s *Service) history(ctx context.Context, sess Session, resource, path string) (map[string]any, error) {
	var raw any
	if err := s.up.Get(ctx, path, nil, sess.UpstreamToken, &raw); err != nil {
		return nil, fromUpstream(err)
	}

	entries := rawEntries(raw)
	conv := s.conventions.For(resource)
	shaped := normalize.Synthesize(entries, normalize.SynthOptions{
		ColonCutoff:   conv.ColonCutoff,
		DefaultAction: conv.DefaultAction,
		ActionKey:     conv.ActionKey,
	}, s.now)

	return map[string]any{
		"data":          shaped,
		"totalElements": len(shaped),
	}, nil
}

func rawEntries(raw any) []any {
	if entries, ok := raw.([]any); ok {
		return entries
	}
	if envelope, ok := raw.(map[string]any); ok {
		if entries, ok := envelope["data"].([]any); ok {
			return entries
		}
	}
	return nil
}

// ── Merchants ──

func (s *Service) ListMerchants(ctx context.Context, sess Session, params ListParams) (map[string]any, error) {
	return s.list(ctx, sess, "merchants", "/merchants", normalize.KindMerchant, params)
}

func (s *Service) GetMerchant(ctx context.Context, sess Session, id string) (map[string]any, error) {
	return s.get(ctx, sess, "/merchants/"+id, normalize.KindMerchant)
}

func (s *Service) CreateMerchant(ctx context.Context, sess Session, body map[string]any) (map[string]any, error) {
	if normalize.StringAlias(body, "code", "merchantCode") == "" {
		return nil, errValidation("merchant code is required")
	}
	if normalize.StringAlias(body, "name", "merchantName", "businessName") == "" {
		return nil, errValidation("merchant name is required")
	}

	var raw map[string]any
	if err := s.up.Post(ctx, "/merchants", sess.UpstreamToken, body, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	s.invalidate(ctx, "merchants")
	return normalize.MapFields(normalize.KindMerchant, raw), nil
}

func (s *Service) UpdateMerchant(ctx context.Context, sess Session, id string, body map[string]any) (map[string]any, error) {
	var raw map[string]any
	if err := s.up.Put(ctx, "/merchants/"+id, sess.UpstreamToken, body, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	s.invalidate(ctx, "merchants")
	return normalize.MapFields(normalize.KindMerchant, raw), nil
}

var allowedMerchantStatuses = map[string]struct{}{
	"ACTIVE":    {},
	"SUSPENDED": {},
	"INACTIVE":  {},
}

func (s *Service) UpdateMerchantStatus(ctx context.Context, sess Session, id, status string) (map[string]any, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if _, ok := allowedMerchantStatuses[status]; !ok {
		return nil, errValidation("status must be ACTIVE, SUSPENDED or INACTIVE")
	}

	var raw map[string]any
	if err := s.up.Post(ctx, "/merchants/"+id+"/status", sess.UpstreamToken, map[string]string{"status": status}, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	s.invalidate(ctx, "merchants")
	return normalize.MapFields(normalize.KindMerchant, raw), nil
}

func (s *Service) MerchantAuditTrail(ctx context.Context, sess Session, id string) (map[string]any, error) {
	return s.history(ctx, sess, "merchants", "/merchants/"+id+"/audit-trail")
}

func (s *Service) ListBankAccounts(ctx context.Context, sess Session, merchantID string) (map[string]any, error) {
	var raw any
	if err := s.up.Get(ctx, "/merchants/"+merchantID+"/bank-accounts", nil, sess.UpstreamToken, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	col := normalize.Unwrap(raw, 0, 0)
	items := make([]any, 0, len(col.Items))
	for _, item := range col.Items {
		record, _ := item.(map[string]any)
		items = append(items, normalize.MapFields(normalize.KindBankAccount, record))
	}
	return map[string]any{"data": items, "totalElements": col.Meta.TotalElements}, nil
}

func (s *Service) CreateBankAccount(ctx context.Context, sess Session, merchantID string, body map[string]any) (map[string]any, error) {
	if normalize.StringAlias(body, "accountNumber", "account_number") == "" {
		return nil, errValidation("account number is required")
	}
	if normalize.StringAlias(body, "bankName", "bank_name", "bank") == "" {
		return nil, errValidation("bank name is required")
	}

	var raw map[string]any
	if err := s.up.Post(ctx, "/merchants/"+merchantID+"/bank-accounts", sess.UpstreamToken, body, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	s.invalidate(ctx, "merchants")
	return normalize.MapFields(normalize.KindBankAccount, raw), nil
}

func (s *Service) ExportMerchants(ctx context.Context, sess Session, filters map[string]string) (export.Result, error) {
	payload, err := s.list(ctx, sess, "merchants", "/merchants", normalize.KindMerchant, ListParams{
		Page:    s.DefaultPage("merchants"),
		Size:    1000,
		Filters: filters,
		NoCache: true,
	})
	if err != nil {
		return export.Result{}, err
	}

	headers := []string{"code", "name", "email", "phone", "country", "status", "createdAt"}
	return export.CSV("merchants", headers, exportRows(payload, headers))
}

// ── Disbursements ──

func (s *Service) ListDisbursements(ctx context.Context, sess Session, params ListParams) (map[string]any, error) {
	return s.list(ctx, sess, "disbursements", "/disbursements", normalize.KindDisbursement, params)
}

func (s *Service) GetDisbursement(ctx context.Context, sess Session, id string) (map[string]any, error) {
	return s.get(ctx, sess, "/disbursements/"+id, normalize.KindDisbursement)
}

func (s *Service) CreateDisbursement(ctx context.Context, sess Session, body map[string]any) (map[string]any, error) {
	if normalize.StringAlias(body, "merchantCode", "merchant_code") == "" {
		return nil, errValidation("merchant code is required")
	}
	if normalize.StringAlias(body, "recipientAccount", "recipient_account") == "" {
		return nil, errValidation("recipient account is required")
	}
	if normalize.FloatAlias(body, "amount") <= 0 {
		return nil, errValidation("amount must be positive")
	}

	var raw map[string]any
	if err := s.up.Post(ctx, "/disbursements", sess.UpstreamToken, body, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	s.invalidate(ctx, "disbursements")
	return normalize.MapFields(normalize.KindDisbursement, raw), nil
}

func (s *Service) TransitionDisbursement(ctx context.Context, sess Session, id, action, comment string) (map[string]any, error) {
	if action != "approve" && action != "reject" {
		return nil, errValidation("action must be approve or reject")
	}

	body := map[string]string{}
	if strings.TrimSpace(comment) != "" {
		body["comment"] = comment
	}
	var raw map[string]any
	if err := s.up.Post(ctx, "/disbursements/"+id+"/"+action, sess.UpstreamToken, body, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	s.invalidate(ctx, "disbursements")
	return normalize.MapFields(normalize.KindDisbursement, raw), nil
}

func (s *Service) DisbursementHistory(ctx context.Context, sess Session, id string) (map[string]any, error) {
	return s.history(ctx, sess, "disbursements", "/disbursements/"+id+"/history")
}

func (s *Service) ExportDisbursements(ctx context.Context, sess Session, filters map[string]string) (export.Result, error) {
	payload, err := s.list(ctx, sess, "disbursements", "/disbursements", normalize.KindDisbursement, ListParams{
		Page:    s.DefaultPage("disbursements"),
		Size:    1000,
		Filters: filters,
		NoCache: true,
	})
	if err != nil {
		return export.Result{}, err
	}

	headers := []string{"reference", "merchantCode", "amount", "currency", "channel", "status", "createdAt", "processedAt"}
	return export.CSV("disbursements", headers, exportRows(payload, headers))
}

// ── Transactions ──

// Transactions have no alias table: the upstream's transaction records are
// already in the shape the console renders, so they pass through unmapped.
func (s *Service) ListTransactions(ctx context.Context, sess Session, params ListParams) (map[string]any, error) {
	return s.list(ctx, sess, "transactions", "/transactions", "", params)
}

func (s *Service) GetTransaction(ctx context.Context, sess Session, id string) (map[string]any, error) {
	return s.get(ctx, sess, "/transactions/"+id, "")
}

func (s *Service) ExportTransactions(ctx context.Context, sess Session, filters map[string]string) (export.Result, error) {
	payload, err := s.list(ctx, sess, "transactions", "/transactions", "", ListParams{
		Page:    s.DefaultPage("transactions"),
		Size:    1000,
		Filters: filters,
		NoCache: true,
	})
	if err != nil {
		return export.Result{}, err
	}

	headers := []string{"id", "reference", "merchantCode", "amount", "currency", "status", "createdAt"}
	return export.CSV("transactions", headers, exportRows(payload, headers))
}

// ── Payment gateways ──

func (s *Service) ListGateways(ctx context.Context, sess Session, params ListParams) (map[string]any, error) {
	return s.list(ctx, sess, "gateways", "/gateways", normalize.KindGateway, params)
}

func (s *Service) GetGateway(ctx context.Context, sess Session, id string) (map[string]any, error) {
	return s.get(ctx, sess, "/gateways/"+id, normalize.KindGateway)
}

func (s *Service) CreateGateway(ctx context.Context, sess Session, body map[string]any) (map[string]any, error) {
	if normalize.StringAlias(body, "code", "gatewayCode") == "" {
		return nil, errValidation("gateway code is required")
	}
	if normalize.StringAlias(body, "name", "gatewayName", "provider") == "" {
		return nil, errValidation("gateway name is required")
	}

	var raw map[string]any
	if err := s.up.Post(ctx, "/gateways", sess.UpstreamToken, body, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	s.invalidate(ctx, "gateways")
	return normalize.MapFields(normalize.KindGateway, raw), nil
}

func (s *Service) UpdateGateway(ctx context.Context, sess Session, id string, body map[string]any) (map[string]any, error) {
	var raw map[string]any
	if err := s.up.Put(ctx, "/gateways/"+id, sess.UpstreamToken, body, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	s.invalidate(ctx, "gateways")
	return normalize.MapFields(normalize.KindGateway, raw), nil
}

func (s *Service) DeleteGateway(ctx context.Context, sess Session, id string) error {
	if err := s.up.Delete(ctx, "/gateways/"+id, sess.UpstreamToken); err != nil {
		return fromUpstream(err)
	}
	s.invalidate(ctx, "gateways")
	return nil
}

// ── Users & roles ──

func (s *Service) ListUsers(ctx context.Context, sess Session, params ListParams) (map[string]any, error) {
	return s.list(ctx, sess, "users", "/users", normalize.KindUser, params)
}

func (s *Service) GetUser(ctx context.Context, sess Session, id string) (map[string]any, error) {
	return s.get(ctx, sess, "/users/"+id, normalize.KindUser)
}

func (s *Service) CreateUser(ctx context.Context, sess Session, body map[string]any) (map[string]any, error) {
	if normalize.StringAlias(body, "username", "userName") == "" {
		return nil, errValidation("username is required")
	}
	if normalize.StringAlias(body, "email") == "" {
		return nil, errValidation("email is required")
	}

	var raw map[string]any
	if err := s.up.Post(ctx, "/users", sess.UpstreamToken, body, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	s.invalidate(ctx, "users")
	return normalize.MapFields(normalize.KindUser, raw), nil
}

func (s *Service) UpdateUser(ctx context.Context, sess Session, id string, body map[string]any) (map[string]any, error) {
	var raw map[string]any
	if err := s.up.Put(ctx, "/users/"+id, sess.UpstreamToken, body, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	s.invalidate(ctx, "users")
	return normalize.MapFields(normalize.KindUser, raw), nil
}

func (s *Service) DeleteUser(ctx context.Context, sess Session, id string) error {
	if err := s.up.Delete(ctx, "/users/"+id, sess.UpstreamToken); err != nil {
		return fromUpstream(err)
	}
	s.invalidate(ctx, "users")
	return nil
}

func (s *Service) AssignUserRoles(ctx context.Context, sess Session, id string, roles []string) (map[string]any, error) {
	if len(roles) == 0 {
		return nil, errValidation("at least one role is required")
	}

	var raw map[string]any
	if err := s.up.Put(ctx, "/users/"+id+"/roles", sess.UpstreamToken, map[string]any{"roles": roles}, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	s.invalidate(ctx, "users")
	return normalize.MapFields(normalize.KindUser, raw), nil
}

func (s *Service) ListRoles(ctx context.Context, sess Session) (map[string]any, error) {
	var raw any
	if err := s.up.Get(ctx, "/roles", nil, sess.UpstreamToken, &raw); err != nil {
		return nil, fromUpstream(err)
	}
	col := normalize.Unwrap(raw, 0, 0)
	return map[string]any{"data": col.Items, "totalElements": col.Meta.TotalElements}, nil
}

// ── Dashboard & platform logs ──

func (s *Service) DashboardStats(ctx context.Context, sess Session) (map[string]any, error) {
	record, err := s.get(ctx, sess, "/dashboard/stats", "")
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"totalMerchants":       normalize.IntAlias(record, "totalMerchants", "total_merchants", "merchants"),
		"activeMerchants":      normalize.IntAlias(record, "activeMerchants", "active_merchants"),
		"totalTransactions":    normalize.IntAlias(record, "totalTransactions", "total_transactions", "transactions"),
		"transactionVolume":    normalize.FloatAlias(record, "transactionVolume", "transaction_volume", "volume"),
		"pendingDisbursements": normalize.IntAlias(record, "pendingDisbursements", "pending_disbursements"),
		"disbursedAmount":      normalize.FloatAlias(record, "disbursedAmount", "disbursed_amount"),
	}, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, sess Session, params ListParams) (map[string]any, error) {
	return s.list(ctx, sess, "logs", "/audit-logs", "", params)
}

// ── Export plumbing ──

// exportRows flattens a normalized list payload into CSV rows following the
// header order. Values render with fmt-style defaults; nil becomes empty.
func exportRows(payload map[string]any, headers []string) [][]string {
	items, _ := payload["data"].([]any)
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		record, _ := item.(map[string]any)
		row := make([]string, len(headers))
		for i, header := range headers {
			row[i] = cellValue(record[header])
		}
		rows = append(rows, row)
	}
	return rows
}

func cellValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case bool:
		return strconv.FormatBool(value)
	case []string:
		return strings.Join(value, "|")
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
