package domain

import (
	"strings"
	"time"
)

// AccountState is derived from the Blocked and EmailVerified flags.
type AccountState string

const (
	StateUnverified AccountState = "unverified"
	StateActive     AccountState = "active"
	StateBlocked    AccountState = "blocked"
)

type Account struct {
	ID           string
	Email        string
	PasswordHash string

	Blocked       bool
	EmailVerified bool

	CreatedAt   time.Time
	LastLoginAt *time.Time

	VerificationToken          *string
	VerificationTokenExpiresAt *time.Time
	VerificationSentAt         *time.Time

	ResetToken          *string
	ResetTokenExpiresAt *time.Time
	ResetSentAt         *time.Time
}

// NormalizeEmail trims and lowercases an address. Every store write and
// lookup goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a Account) State() AccountState {
	switch {
	case a.Blocked:
		return StateBlocked
	case !a.EmailVerified:
		return StateUnverified
	default:
		return StateActive
	}
}

// IsActive reports whether the account may use gated pages.
func (a Account) IsActive() bool {
	return !a.Blocked && a.EmailVerified
}

// VerificationTokenValid reports whether tok is the stored verification
// token and has not expired at now.
func (a Account) VerificationTokenValid(tok string, now time.Time) bool {
	return tokenMatches(a.VerificationToken, tok) && notExpired(a.VerificationTokenExpiresAt, now)
}

// ResetTokenExpired reports whether the stored reset token is past its
// expiry (or has none).
func (a Account) ResetTokenExpired(now time.Time) bool {
	return !notExpired(a.ResetTokenExpiresAt, now)
}

// CanResend reports whether a throttled email stamped at sentAt may be
// sent again at now.
func CanResend(sentAt *time.Time, cooldown time.Duration, now time.Time) bool {
	if sentAt == nil {
		return true
	}
	return !now.Before(sentAt.Add(cooldown))
}

func tokenMatches(stored *string, tok string) bool {
	return stored != nil && tok != "" && *stored == tok
}

func notExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && !now.After(*expiresAt)
}

// IssuedToken is a freshly generated one-time token with its expiry and
// the send stamp used for throttling.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
	SentAt    time.Time
}
