package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/email"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/session"
	http_handlers "github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/handlers"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB   func(addr string, debug bool) (*sql.DB, error)
	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(url, exchange, queue string) (Publisher, error)
}

// Publisher is an account.Mailer backed by a broker connection.
type Publisher interface {
	account.Mailer
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	var checks []http_handlers.Check

	// 1) account store
	var store account.AccountStore
	switch cfg.StoreDriver {
	case "postgres":
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return fail(err)
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		if cfg.DBMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := deps.Migrate(ctx, db)
			cancel()
			if err != nil {
				return fail(err)
			}
			logger.Logger.Info().Msg("migrations applied")
		}

		pg := postgres.NewAccountStore(db)
		store = pg
		checks = append(checks, http_handlers.Check{Name: "postgres", Ping: pg.Ping})
	default:
		logger.Logger.Warn().Msg("using in-memory account store; data is lost on restart")
		store = memory.NewAccountStore()
	}

	// 2) redis (best-effort outside prod)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Ping(context.Background()); err != nil {
			_ = c.Close()
			if cfg.Env == "prod" {
				return fail(fmt.Errorf("redis: %w", err))
			}
			logger.Logger.Warn().Err(err).Msg("redis unavailable; sessions and rate limits stay in process")
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			checks = append(checks, http_handlers.Check{Name: "redis", Ping: c.Ping})
		}
	}

	var sessionStore session.Store
	var limiter middleware.RateLimiter
	if redisCli != nil {
		sessionStore = redis.NewSessionStore(redisCli)
		limiter = rateLimiter{redis.NewFixedWindowLimiter(redisCli)}
	} else {
		sessionStore = memory.NewSessionStore()
	}

	// 3) email transport
	var mailer account.Mailer
	switch cfg.EmailTransport {
	case "smtp":
		mailer = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Timeout:  cfg.SMTP.Timeout,
			Insecure: cfg.SMTP.Insecure,
		}, logger.Logger)
	case "rabbitmq":
		pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, cfg.EmailQueue)
		if err != nil {
			return fail(err)
		}
		cleanupFns = append(cleanupFns, func() { _ = pub.Close() })
		mailer = pub
	default:
		logger.Logger.Warn().Msg("EMAIL_TRANSPORT=log; emails are written to the log only")
		mailer = memory.NewLoggingMailbox()
	}

	// 4) security
	var hasher account.PasswordHasher = security.NewSHA256Hasher()
	if cfg.PasswordHasher == "bcrypt" {
		hasher = security.NewBcryptHasher(cfg.BcryptCost)
	}
	codec := security.NewSessionCookieCodec(cfg.SessionSecret, "account-service")

	// 5) service
	auditLog := audit.New(logger.Logger)
	svc := account.NewService(
		store,
		hasher,
		security.NewOpaqueTokens(),
		mailer,
		account.Config{
			VerifyEmailBaseURL:    cfg.VerifyEmailBaseURL,
			PasswordResetBaseURL:  cfg.PasswordResetBaseURL,
			VerifyEmailTokenTTL:   cfg.VerifyEmailTokenTTL,
			PasswordResetTokenTTL: cfg.PasswordResetTokenTTL,
			ResendCooldown:        cfg.EmailResendCooldown,
			EmailBestEffort:       cfg.EmailBestEffort,
		},
	).
		WithAudit(auditLog.Record).
		WithErrorLog(func(ctx context.Context, op string, err error) {
			logger.WithCtx(ctx).Error().Err(err).Str("op", op).Msg("email delivery failed")
		})

	// seed (dev only)
	if cfg.Env == "dev" && cfg.SeedEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := SeedAccount(ctx, store, hasher, cfg.SeedEmail, cfg.SeedPassword)
		cancel()
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("seed account failed")
		}
	}

	// 6) handlers + middleware
	sessions := session.NewManager(sessionStore, codec, session.Config{
		CookieName: cfg.SessionCookieName,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.Env != "dev",
	})

	rl := func(route string) func(http.Handler) http.Handler {
		return middleware.RateLimitFixedWindow(
			limiter,
			middleware.FixedWindowConfig{
				RouteKey: "auth." + route,
				Limit:    cfg.RLAuthLimit,
				Window:   cfg.RLAuthWindow,
			},
			response.WriteError,
		)
	}

	// 7) router
	mux, err := router.New(router.Deps{
		Health:     http_handlers.NewHealthHandler(checks...),
		Auth:       http_handlers.NewAuthHandler(svc, cfg.LoginPath),
		Admin:      http_handlers.NewAdminHandler(svc),
		Metrics:    promhttp.Handler(),
		SessionMW:  middleware.Session(sessions),
		VerifiedMW: middleware.RequireVerified(svc, cfg.LoginPath, response.WriteError),
		ActiveMW:   middleware.RequireActive(svc, cfg.LoginPath, response.WriteError),
		RateLimit:  rl,
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate:    postgres.Migrate,
		NewRedis:   redis.New,
		NewPublisher: func(url, exchange, queue string) (Publisher, error) {
			return rabbitmq.NewPublisher(url, exchange, queue)
		},
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
