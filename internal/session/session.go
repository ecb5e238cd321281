// Package session binds an HTTP client to at most one account id.
// The cookie carries a signed session id; the account id lives in a Store.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
)

var ErrNotFound = errors.New("session not found")

// Store maps session ids to account ids with a TTL.
type Store interface {
	Get(ctx context.Context, sid string) (accountID string, err error) // ErrNotFound when absent
	Set(ctx context.Context, sid, accountID string, ttl time.Duration) error
	Delete(ctx context.Context, sid string) error
}

type Codec interface {
	Encode(sessionID string, ttl time.Duration) (string, error)
	Decode(value string) (string, error)
}

type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type Manager struct {
	store Store
	codec Codec
	cfg   Config
	newID func() string
}

func NewManager(store Store, codec Codec, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = security.DefaultSessionCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Manager{store: store, codec: codec, cfg: cfg, newID: uuid.NewString}
}

// Open returns the session handle for one request.
func (m *Manager) Open(w http.ResponseWriter, r *http.Request) *Handle {
	return &Handle{m: m, w: w, r: r}
}

// Handle implements account.SessionContext for a single request.
type Handle struct {
	m *Manager
	w http.ResponseWriter
	r *http.Request

	once sync.Once
	sid  string
}

// sessionID decodes the cookie once. A missing or tampered cookie reads as
// no session.
func (h *Handle) sessionID() string {
	h.once.Do(func() {
		raw, err := security.ReadSessionCookie(h.r, h.m.cfg.CookieName)
		if err != nil || raw == "" {
			return
		}
		if sid, err := h.m.codec.Decode(raw); err == nil {
			h.sid = sid
		}
	})
	return h.sid
}

func (h *Handle) Resolve(ctx context.Context) (string, bool, error) {
	sid := h.sessionID()
	if sid == "" {
		return "", false, nil
	}
	id, err := h.m.store.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return id, id != "", nil
}

// Bind rotates the session id so a pre-login cookie never carries an
// authenticated session.
func (h *Handle) Bind(ctx context.Context, accountID string) error {
	if old := h.sessionID(); old != "" {
		if err := h.m.store.Delete(ctx, old); err != nil {
			return err
		}
	}

	sid := h.m.newID()
	if err := h.m.store.Set(ctx, sid, accountID, h.m.cfg.TTL); err != nil {
		return err
	}
	value, err := h.m.codec.Encode(sid, h.m.cfg.TTL)
	if err != nil {
		return err
	}
	security.SetSessionCookie(h.w, h.m.cfg.CookieName, value, h.m.cfg.TTL, h.m.cfg.Secure)
	h.sid = sid
	return nil
}

func (h *Handle) Clear(ctx context.Context) error {
	if sid := h.sessionID(); sid != "" {
		if err := h.m.store.Delete(ctx, sid); err != nil {
			return err
		}
		h.sid = ""
	}
	security.ClearSessionCookie(h.w, h.m.cfg.CookieName, h.m.cfg.Secure)
	return nil
}

type ctxKey struct{}

func WithHandle(ctx context.Context, h *Handle) context.Context {
	return context.WithValue(ctx, ctxKey{}, h)
}

func FromContext(ctx context.Context) (*Handle, bool) {
	h, ok := ctx.Value(ctxKey{}).(*Handle)
	return h, ok && h != nil
}
