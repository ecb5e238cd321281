package account

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// Login authenticates email/password and binds the account to sess.
// A blocked account has its session cleared and is refused with reason
// blocked. Verification is not checked here; the gates handle it.
func (s *Service) Login(ctx context.Context, sess SessionContext, email, password string) (domain.Account, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Account{}, domain.ErrMissingInput("email")
	}
	if strings.TrimSpace(password) == "" {
		return domain.Account{}, domain.ErrMissingInput("password")
	}

	a, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, domain.CodeNotFound) {
			s.audit("account.login_failed", map[string]string{"email": email, "reason": domain.CodeInvalidCredentials})
			return domain.Account{}, domain.ErrInvalidCredentials()
		}
		return domain.Account{}, err
	}

	if err := s.hasher.Compare(a.PasswordHash, password); err != nil {
		s.audit("account.login_failed", map[string]string{"email": email, "reason": domain.CodeInvalidCredentials})
		return domain.Account{}, domain.ErrInvalidCredentials()
	}

	if a.Blocked {
		if err := sess.Clear(ctx); err != nil {
			return domain.Account{}, err
		}
		s.audit("account.login_failed", map[string]string{"account_id": a.ID, "email": email, "reason": domain.CodeAccountBlocked})
		return domain.Account{}, domain.ErrAccountBlocked()
	}

	now := s.now()
	if err := s.store.TouchLogin(ctx, a.ID, now); err != nil {
		return domain.Account{}, err
	}
	a.LastLoginAt = &now

	if err := sess.Bind(ctx, a.ID); err != nil {
		return domain.Account{}, err
	}

	s.audit("account.login", map[string]string{"account_id": a.ID, "email": a.Email})
	return a, nil
}

// Logout clears the session whether or not one was bound.
func (s *Service) Logout(ctx context.Context, sess SessionContext) error {
	return sess.Clear(ctx)
}
