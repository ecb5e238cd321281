package account

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type Service struct {
	store  AccountStore
	hasher PasswordHasher
	tokens TokenGenerator
	mailer Mailer

	now   func() time.Time
	newID func() string
	audit func(action string, fields map[string]string)
	onErr func(ctx context.Context, op string, err error)

	verifyEmailBaseURL   string
	passwordResetBaseURL string
	verifyEmailTTL       time.Duration
	passwordResetTTL     time.Duration
	resendCooldown       time.Duration
	emailBestEffort      bool
}

type Config struct {
	VerifyEmailBaseURL    string // e.g. https://portal/auth/v1/verify-email?token=
	PasswordResetBaseURL  string // e.g. https://portal/reset-password?token=
	VerifyEmailTokenTTL   time.Duration
	PasswordResetTokenTTL time.Duration
	ResendCooldown        time.Duration

	// EmailBestEffort swallows delivery errors after the state change has
	// been stored. Off by default: the caller sees the failure.
	EmailBestEffort bool
}

func NewService(
	store AccountStore,
	hasher PasswordHasher,
	tokens TokenGenerator,
	mailer Mailer,
	cfg Config,
) *Service {
	verifyTTL := cfg.VerifyEmailTokenTTL
	if verifyTTL <= 0 {
		verifyTTL = 24 * time.Hour
	}
	resetTTL := cfg.PasswordResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	cooldown := cfg.ResendCooldown
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		mailer: mailer,

		now:   func() time.Time { return time.Now().UTC() },
		newID: newAccountID,
		audit: func(string, map[string]string) {},
		onErr: func(context.Context, string, error) {},

		verifyEmailBaseURL:   cfg.VerifyEmailBaseURL,
		passwordResetBaseURL: cfg.PasswordResetBaseURL,
		verifyEmailTTL:       verifyTTL,
		passwordResetTTL:     resetTTL,
		resendCooldown:       cooldown,
		emailBestEffort:      cfg.EmailBestEffort,
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// WithClock replaces the time source. Tests use it to step over expiry
// and cooldown boundaries.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithErrorLog receives email failures swallowed in best-effort mode.
func (s *Service) WithErrorLog(fn func(ctx context.Context, op string, err error)) *Service {
	if fn != nil {
		s.onErr = fn
	}
	return s
}

func (s *Service) newToken(now time.Time, ttl time.Duration) (domain.IssuedToken, error) {
	v, err := s.tokens.NewToken()
	if err != nil {
		return domain.IssuedToken{}, domain.ErrRandomFailed(err)
	}
	return domain.IssuedToken{Value: v, ExpiresAt: now.Add(ttl), SentAt: now}, nil
}

func (s *Service) deliver(ctx context.Context, op string, msg Email) error {
	if err := s.mailer.Send(ctx, msg); err != nil {
		if s.emailBestEffort {
			s.onErr(ctx, op, err)
			return nil
		}
		if domain.Is(err, domain.CodeEmailDelivery) || domain.Is(err, domain.CodeRabbitUnavailable) {
			return err
		}
		return domain.ErrEmailDelivery(err)
	}
	return nil
}
