package http_handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/session"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

// AuthService is the part of account.Service the auth endpoints call.
type AuthService interface {
	Register(ctx context.Context, email, password string) (domain.Account, error)
	VerifyEmail(ctx context.Context, token string) (bool, error)
	Login(ctx context.Context, sess account.SessionContext, email, password string) (domain.Account, error)
	Logout(ctx context.Context, sess account.SessionContext) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context, sess account.SessionContext) (domain.Account, bool, error)
}

var errNoSession = errors.New("session middleware not installed")

type AuthHandler struct {
	svc       AuthService
	loginPath string
}

func NewAuthHandler(svc AuthService, loginPath string) *AuthHandler {
	return &AuthHandler{svc: svc, loginPath: loginPath}
}

func sessionFrom(r *http.Request) (account.SessionContext, error) {
	h, ok := session.FromContext(r.Context())
	if !ok {
		return nil, domain.ErrInternal(errNoSession)
	}
	return h, nil
}

// LoginLanding handles GET /login?reason=. It returns the notice for the
// reason code; unknown codes yield an empty notice.
func (h *AuthHandler) LoginLanding(w http.ResponseWriter, r *http.Request) {
	reason := domain.Reason(strings.TrimSpace(r.URL.Query().Get("reason")))
	response.OK(w, dto.NewReasonResponse(reason))
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	a, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("account_id", a.ID).
		Msg("account_registered")
	middleware.AccountEventsTotal.WithLabelValues("registered").Inc()

	response.Created(w, dto.NewReasonResponse(domain.ReasonUnverifiedSent))
}

// VerifyEmail handles GET /verify-email?token=. Bad or expired tokens are
// not reported; the client always lands on the login page.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if ok {
		logger.WithCtx(r.Context()).Info().Msg("email_verified")
		middleware.AccountEventsTotal.WithLabelValues("verified").Inc()
	}
	response.SeeOther(w, r, h.loginPath, "")
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	sess, err := sessionFrom(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	a, err := h.svc.Login(r.Context(), sess, req.Email, req.Password)
	if err != nil {
		middleware.LoginAttemptsTotal.WithLabelValues(loginResult(err)).Inc()
		response.WriteError(w, r, err)
		return
	}
	middleware.LoginAttemptsTotal.WithLabelValues("success").Inc()

	logger.WithCtx(r.Context()).Info().
		Str("account_id", a.ID).
		Msg("account_logged_in")

	response.OK(w, dto.NewAccountView(a))
}

func loginResult(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		switch de.Code {
		case domain.CodeInvalidCredentials, domain.CodeAccountBlocked, domain.CodeMissingInput:
			return de.Code
		}
	}
	return "error"
}

// Logout handles POST|GET /logout. It always succeeds for the client.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := h.svc.Logout(r.Context(), sess); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, err)
		return
	}
	middleware.AccountEventsTotal.WithLabelValues("verification_resent").Inc()

	response.OK(w, dto.NewReasonResponse(domain.ReasonResent))
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, err)
		return
	}
	middleware.AccountEventsTotal.WithLabelValues("reset_requested").Inc()

	response.OK(w, dto.NewReasonResponse(domain.ReasonResetSent))
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetConfirmRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().Msg("password_reset")
	middleware.AccountEventsTotal.WithLabelValues("reset_done").Inc()

	response.OK(w, dto.NewReasonResponse(domain.ReasonResetDone))
}

// Me handles GET /me behind the active gate.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if a, ok := middleware.AccountFromContext(r.Context()); ok {
		response.OK(w, dto.NewAccountView(a))
		return
	}

	sess, err := sessionFrom(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	a, ok, err := h.svc.Me(r.Context(), sess)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if !ok {
		response.SeeOther(w, r, h.loginPath, "")
		return
	}
	response.OK(w, dto.NewAccountView(a))
}
