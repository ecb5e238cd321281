package account

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// ForgotPassword issues a reset token and emails it. Unknown emails are
// reported as not found.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.ErrMissingInput("email")
	}

	a, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	now := s.now()
	if !domain.CanResend(a.ResetSentAt, s.resendCooldown, now) {
		return domain.ErrRateLimited(domain.ReasonResetWait)
	}

	tok, err := s.newToken(now, s.passwordResetTTL)
	if err != nil {
		return err
	}
	issued, err := s.store.IssueResetToken(ctx, a.ID, tok, now.Add(-s.resendCooldown))
	if err != nil {
		return err
	}
	if !issued {
		return domain.ErrRateLimited(domain.ReasonResetWait)
	}

	s.audit("account.password_reset_requested", map[string]string{"account_id": a.ID, "email": a.Email})
	return s.deliver(ctx, "forgot_password", s.passwordResetEmail(a.Email, tok.Value))
}

// ResetPassword replaces the password hash if token is a live reset token.
// Unlike VerifyEmail, failures are explicit.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrMissingInput("token")
	}
	if strings.TrimSpace(newPassword) == "" {
		return domain.ErrMissingInput("new_password")
	}

	a, err := s.store.GetByResetToken(ctx, token)
	if err != nil {
		if domain.Is(err, domain.CodeNotFound) {
			return domain.ErrInvalidToken()
		}
		return err
	}
	if a.ResetTokenExpired(s.now()) {
		return domain.ErrExpiredToken()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.ErrHashFailed(err)
	}

	if err := s.store.ConsumeResetToken(ctx, a.ID, token, hash); err != nil {
		if domain.Is(err, domain.CodeNotFound) {
			return domain.ErrInvalidToken()
		}
		return err
	}

	s.audit("account.password_reset", map[string]string{"account_id": a.ID, "email": a.Email})
	return nil
}
