package account

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// VerifyEmail consumes a verification token. Blank, unknown, expired and
// already-consumed tokens are all a silent no-op (false, nil); only store
// failures surface as errors.
func (s *Service) VerifyEmail(ctx context.Context, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}

	a, err := s.store.GetByVerificationToken(ctx, token)
	if err != nil {
		if domain.Is(err, domain.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	if !a.VerificationTokenValid(token, s.now()) {
		return false, nil
	}

	if err := s.store.ConsumeVerificationToken(ctx, a.ID, token); err != nil {
		if domain.Is(err, domain.CodeInvalidToken) || domain.Is(err, domain.CodeNotFound) {
			return false, nil
		}
		return false, err
	}

	s.audit("account.email_verified", map[string]string{"account_id": a.ID, "email": a.Email})
	return true, nil
}

// ResendVerification issues a fresh verification token, at most once per
// cooldown window.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.ErrMissingInput("email")
	}

	a, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if a.EmailVerified {
		return domain.ErrAlreadyVerified()
	}

	now := s.now()
	if !domain.CanResend(a.VerificationSentAt, s.resendCooldown, now) {
		return domain.ErrRateLimited(domain.ReasonWait)
	}

	tok, err := s.newToken(now, s.verifyEmailTTL)
	if err != nil {
		return err
	}
	issued, err := s.store.IssueVerificationToken(ctx, a.ID, tok, now.Add(-s.resendCooldown))
	if err != nil {
		return err
	}
	if !issued {
		return domain.ErrRateLimited(domain.ReasonWait)
	}

	s.audit("account.verification_resent", map[string]string{"account_id": a.ID, "email": a.Email})
	return s.deliver(ctx, "resend_verification", s.verificationEmail(a.Email, tok.Value))
}
