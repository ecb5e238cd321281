package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/redis"
)

func baseConfig() *config.Config {
	return &config.Config{
		Env:                   "dev",
		HTTPAddr:              ":0",
		LoginPath:             "/auth/v1/login",
		StoreDriver:           "memory",
		SessionSecret:         "test-secret",
		SessionCookieName:     "sid",
		SessionTTL:            time.Hour,
		PasswordHasher:        "sha256",
		EmailTransport:        "log",
		VerifyEmailBaseURL:    "http://example.com/verify?token=",
		PasswordResetBaseURL:  "http://example.com/reset?token=",
		VerifyEmailTokenTTL:   time.Hour,
		PasswordResetTokenTTL: time.Hour,
		EmailResendCooldown:   time.Minute,
		RLAuthLimit:           20,
		RLAuthWindow:          time.Minute,
	}
}

func depsFor(cfg *config.Config) Deps {
	return Deps{
		LoadConfig: func() (*config.Config, error) { return cfg, nil },
		NewDB: func(string, bool) (*sql.DB, error) {
			return nil, errors.New("NewDB should not be called")
		},
		Migrate:  func(context.Context, *sql.DB) error { return nil },
		NewRedis: redis.New,
		NewPublisher: func(string, string, string) (Publisher, error) {
			return nil, errors.New("NewPublisher should not be called")
		},
	}
}

func get(t *testing.T, h http.Handler, path string) int {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr.Code
}

func TestNewServer_ConfigLoadFails(t *testing.T) {
	d := depsFor(nil)
	d.LoadConfig = func() (*config.Config, error) { return nil, errors.New("bad env") }

	srv, cleanup, err := NewServerWithDeps(d)
	require.Error(t, err)
	assert.Nil(t, srv)
	assert.Nil(t, cleanup)
}

func TestNewServer_MemoryStore(t *testing.T) {
	srv, cleanup, err := NewServerWithDeps(depsFor(baseConfig()))
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, http.StatusOK, get(t, srv.Handler, "/healthz"))
	assert.Equal(t, http.StatusOK, get(t, srv.Handler, "/readyz"))
	assert.Equal(t, http.StatusOK, get(t, srv.Handler, "/metrics"))
	assert.Equal(t, http.StatusSeeOther, get(t, srv.Handler, "/admin/v1/accounts"))
}

func TestNewServer_RedisReadiness(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := baseConfig()
	cfg.RedisAddr = mr.Addr()

	srv, cleanup, err := NewServerWithDeps(depsFor(cfg))
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, http.StatusOK, get(t, srv.Handler, "/readyz"))

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.Handler, "/readyz"))
}

func TestNewServer_RedisDownDevFallsBack(t *testing.T) {
	cfg := baseConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	srv, cleanup, err := NewServerWithDeps(depsFor(cfg))
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, http.StatusOK, get(t, srv.Handler, "/readyz"))
}

func TestNewServer_RedisDownProdFails(t *testing.T) {
	cfg := baseConfig()
	cfg.Env = "prod"
	cfg.RedisAddr = "127.0.0.1:1"

	_, _, err := NewServerWithDeps(depsFor(cfg))
	require.Error(t, err)
}

func TestNewServer_PostgresMigrates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	cfg := baseConfig()
	cfg.StoreDriver = "postgres"
	cfg.DBAddr = "postgres://x"
	cfg.DBMigrate = true

	migrated := false
	d := depsFor(cfg)
	d.NewDB = func(addr string, debug bool) (*sql.DB, error) {
		assert.Equal(t, "postgres://x", addr)
		return db, nil
	}
	d.Migrate = func(ctx context.Context, got *sql.DB) error {
		migrated = got == db
		return nil
	}

	_, cleanup, err := NewServerWithDeps(d)
	require.NoError(t, err)
	assert.True(t, migrated)

	cleanup()
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewServer_MigrateFailureClosesDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	cfg := baseConfig()
	cfg.StoreDriver = "postgres"
	cfg.DBMigrate = true

	d := depsFor(cfg)
	d.NewDB = func(string, bool) (*sql.DB, error) { return db, nil }
	d.Migrate = func(context.Context, *sql.DB) error { return errors.New("dirty") }

	_, _, err = NewServerWithDeps(d)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewServer_RabbitPublisherFailure(t *testing.T) {
	cfg := baseConfig()
	cfg.EmailTransport = "rabbitmq"
	cfg.RabbitURL = "amqp://nowhere"

	d := depsFor(cfg)
	d.NewPublisher = func(url, exchange, queue string) (Publisher, error) {
		return nil, errors.New("dial failed")
	}

	_, _, err := NewServerWithDeps(d)
	require.EqualError(t, err, "dial failed")
}
