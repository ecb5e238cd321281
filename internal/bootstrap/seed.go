package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

// SeedAccount creates a verified account for local development unless the
// email is already taken.
func SeedAccount(ctx context.Context, store account.AccountStore, hasher account.PasswordHasher, email, password string) error {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return fmt.Errorf("seed: email and password are required")
	}

	if _, err := store.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !domain.Is(err, domain.CodeNotFound) {
		return err
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	a, err := store.Create(ctx, domain.Account{
		ID:            uuid.NewString(),
		Email:         email,
		PasswordHash:  hash,
		EmailVerified: true,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		if domain.Is(err, domain.CodeDuplicateEmail) {
			return nil
		}
		return err
	}

	logger.Logger.Info().Str("account_id", a.ID).Msg("seed account created")
	return nil
}
