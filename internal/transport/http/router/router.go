package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	LoginLanding(w http.ResponseWriter, r *http.Request)
	Register(w http.ResponseWriter, r *http.Request)
	VerifyEmail(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)

	ResendVerification(w http.ResponseWriter, r *http.Request)
	ForgotPassword(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)

	Me(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Block(w http.ResponseWriter, r *http.Request)
	Unblock(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	DeleteUnverified(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health  HealthHandler
	Auth    AuthHandler
	Admin   AdminHandler
	Metrics http.Handler

	SessionMW  func(http.Handler) http.Handler
	VerifiedMW func(http.Handler) http.Handler
	ActiveMW   func(http.Handler) http.Handler

	// RateLimit builds the limiter for one route key. nil disables limits.
	RateLimit func(route string) func(http.Handler) http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Admin == nil {
		return nil, fmt.Errorf("nil Admin handler")
	}
	if deps.SessionMW == nil {
		return nil, fmt.Errorf("nil Session middleware")
	}
	if deps.VerifiedMW == nil {
		return nil, fmt.Errorf("nil Verified middleware")
	}
	if deps.ActiveMW == nil {
		return nil, fmt.Errorf("nil Active middleware")
	}

	limit := deps.RateLimit
	if limit == nil {
		limit = func(string) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler { return next }
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/auth/v1", func(r chi.Router) {
		r.Use(deps.SessionMW)

		r.Get("/login", deps.Auth.LoginLanding) // ?reason=...
		r.With(limit("login")).Post("/login", deps.Auth.Login)
		r.With(limit("register")).Post("/register", deps.Auth.Register)
		r.Post("/logout", deps.Auth.Logout)
		r.Get("/logout", deps.Auth.Logout)

		// --- Email verification ---
		r.Get("/verify-email", deps.Auth.VerifyEmail) // ?token=...
		r.With(limit("verify_resend")).Post("/verify-email/resend", deps.Auth.ResendVerification)

		// --- Password reset ---
		r.With(limit("password_forgot")).Post("/password/forgot", deps.Auth.ForgotPassword)
		r.With(limit("password_reset")).Post("/password/reset", deps.Auth.ResetPassword)

		r.With(deps.ActiveMW).Get("/me", deps.Auth.Me)
	})

	r.Route("/admin/v1/accounts", func(r chi.Router) {
		r.Use(deps.SessionMW)
		r.Use(deps.VerifiedMW)

		r.Get("/", deps.Admin.List)
		r.Post("/block", deps.Admin.Block)
		r.Post("/unblock", deps.Admin.Unblock)
		r.Post("/delete", deps.Admin.Delete)
		r.Post("/delete-unverified", deps.Admin.DeleteUnverified)
	})

	return r, nil
}
