package middleware

import (
	"net/http"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/session"
)

// Session opens the per-request session handle and stores it in the
// request context. Handlers and gates read it with session.FromContext.
func Session(m *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := m.Open(w, r)
			next.ServeHTTP(w, r.WithContext(session.WithHandle(r.Context(), h)))
		})
	}
}
