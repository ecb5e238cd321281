package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/session"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

// Gatekeeper is the slice of account.Service the gates need.
type Gatekeeper interface {
	CheckVerified(ctx context.Context, sess account.SessionContext) (account.GateDecision, error)
	CheckActive(ctx context.Context, sess account.SessionContext) (account.GateDecision, error)
}

var errNoSession = errors.New("session middleware not installed")

type accountCtxKey struct{}

// AccountFromContext returns the account admitted by a gate.
func AccountFromContext(ctx context.Context) (domain.Account, bool) {
	a, ok := ctx.Value(accountCtxKey{}).(domain.Account)
	return a, ok
}

// RequireVerified admits verified, unblocked accounts. Denials redirect to
// loginPath with the reason code.
func RequireVerified(g Gatekeeper, loginPath string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return gate("verified", g.CheckVerified, loginPath, writeErr)
}

// RequireActive admits the same accounts but redirects without a reason.
func RequireActive(g Gatekeeper, loginPath string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return gate("active", g.CheckActive, loginPath, writeErr)
}

type checkFunc func(ctx context.Context, sess account.SessionContext) (account.GateDecision, error)

func gate(name string, check checkFunc, loginPath string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok {
				writeErr(w, r, domain.ErrInternal(errNoSession))
				return
			}

			d, err := check(r.Context(), sess)
			if err != nil {
				logger.WithCtx(r.Context()).Error().Err(err).Str("gate", name).Msg("gate_check_failed")
				writeErr(w, r, err)
				return
			}
			if !d.Allowed {
				GateDenialsTotal.WithLabelValues(name, string(d.Reason)).Inc()
				response.SeeOther(w, r, loginPath, string(d.Reason))
				return
			}

			ctx := context.WithValue(r.Context(), accountCtxKey{}, d.Account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
