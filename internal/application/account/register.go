package account

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

func newAccountID() string { return uuid.NewString() }

// Register creates an unverified account and sends the first verification
// email. The account stays stored even when the email fails.
func (s *Service) Register(ctx context.Context, email, password string) (domain.Account, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Account{}, domain.ErrMissingInput("email")
	}
	if strings.TrimSpace(password) == "" {
		return domain.Account{}, domain.ErrMissingInput("password")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.Account{}, domain.ErrHashFailed(err)
	}

	now := s.now()
	tok, err := s.newToken(now, s.verifyEmailTTL)
	if err != nil {
		return domain.Account{}, err
	}

	created, err := s.store.Create(ctx, domain.Account{
		ID:                         s.newID(),
		Email:                      email,
		PasswordHash:               hash,
		CreatedAt:                  now,
		VerificationToken:          &tok.Value,
		VerificationTokenExpiresAt: &tok.ExpiresAt,
		VerificationSentAt:         &tok.SentAt,
	})
	if err != nil {
		return domain.Account{}, err
	}

	s.audit("account.registered", map[string]string{"account_id": created.ID, "email": created.Email})

	if err := s.deliver(ctx, "register", s.verificationEmail(created.Email, tok.Value)); err != nil {
		return created, err
	}
	return created, nil
}
