package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	appCtx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/session"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

// ---------- RequestID ----------

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = appCtx.GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(HeaderXRequestID))
}

func TestRequestID_KeepsIncoming(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = appCtx.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "rid-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "rid-123", seen)
}

// ---------- Metrics ----------

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/things/{id}", okHandler)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/42", nil))

	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	assert.Contains(t, body, `account_service_http_requests_total{method="GET",path="/things/{id}",status="200"}`)
	assert.NotContains(t, body, `path="/things/42"`)
}

// ---------- Gates ----------

type fakeGate struct {
	decision account.GateDecision
	err      error
	calls    int
}

func (g *fakeGate) CheckVerified(context.Context, account.SessionContext) (account.GateDecision, error) {
	g.calls++
	return g.decision, g.err
}

func (g *fakeGate) CheckActive(context.Context, account.SessionContext) (account.GateDecision, error) {
	g.calls++
	return g.decision, g.err
}

func withSession(next http.Handler) http.Handler {
	mgr := session.NewManager(
		memory.NewSessionStore(),
		security.NewSessionCookieCodec("test-secret", "account-service"),
		session.Config{},
	)
	return Session(mgr)(next)
}

func TestRequireVerified_DenialRedirectsWithReason(t *testing.T) {
	g := &fakeGate{decision: account.GateDecision{Reason: domain.ReasonBlocked}}
	called := false
	h := withSession(RequireVerified(g, "/auth/v1/login", response.WriteError)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/v1/accounts", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth/v1/login?reason=blocked", rr.Header().Get("Location"))
}

func TestRequireActive_DenialRedirectsWithoutReason(t *testing.T) {
	g := &fakeGate{}
	h := withSession(RequireActive(g, "/auth/v1/login", response.WriteError)(http.HandlerFunc(okHandler)))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/v1/me", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth/v1/login", rr.Header().Get("Location"))
}

func TestGate_AllowedInjectsAccount(t *testing.T) {
	g := &fakeGate{decision: account.GateDecision{Allowed: true, Account: domain.Account{ID: "acc-1"}}}

	var got domain.Account
	h := withSession(RequireVerified(g, "/login", response.WriteError)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = AccountFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "acc-1", got.ID)
}

func TestGate_StoreErrorIsWritten(t *testing.T) {
	g := &fakeGate{err: domain.ErrDBUnavailable(errors.New("down"))}
	h := withSession(RequireVerified(g, "/login", response.WriteError)(http.HandlerFunc(okHandler)))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestGate_WithoutSessionMiddleware(t *testing.T) {
	g := &fakeGate{}
	h := RequireVerified(g, "/login", response.WriteError)(http.HandlerFunc(okHandler))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Zero(t, g.calls)
}

// ---------- Rate limiting ----------

type fakeLimiter struct {
	dec  Decision
	err  error
	keys []string
}

func (l *fakeLimiter) AllowFixedWindow(_ context.Context, key string, limit int, _ time.Duration) (Decision, error) {
	l.keys = append(l.keys, key)
	d := l.dec
	d.Limit = limit
	return d, l.err
}

func TestRateLimitFixedWindow_Denied(t *testing.T) {
	lim := &fakeLimiter{dec: Decision{Allowed: false, RetryAfter: 30 * time.Second}}
	h := RateLimitFixedWindow(lim, FixedWindowConfig{RouteKey: "login", Limit: 5, Window: time.Minute}, response.WriteError)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/auth/v1/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))
	require.Len(t, lim.keys, 1)
	assert.Contains(t, lim.keys[0], "rl:login:ip:10.0.0.1:")
}

func TestRateLimitFixedWindow_FailsOpen(t *testing.T) {
	lim := &fakeLimiter{err: errors.New("redis down")}
	h := RateLimitFixedWindow(lim, FixedWindowConfig{RouteKey: "login", Limit: 5}, response.WriteError)(http.HandlerFunc(okHandler))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimitFixedWindow_InProcessFallback(t *testing.T) {
	h := RateLimitFixedWindow(nil, FixedWindowConfig{RouteKey: "register", Limit: 1, Window: time.Minute}, response.WriteError)(http.HandlerFunc(okHandler))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:4000"
	assert.Equal(t, "192.168.1.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientIP(req))
}

func TestWindowBucket(t *testing.T) {
	now := time.Unix(125, 0)
	assert.Equal(t, int64(2), windowBucket(now, time.Minute))
	assert.Equal(t, int64(2), windowBucket(now, 0))
}
