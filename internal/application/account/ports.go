package account

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type AccountStore interface {
	// Create fails with domain.ErrDuplicateEmail when the normalized email
	// is already taken.
	Create(ctx context.Context, a domain.Account) (domain.Account, error)
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByVerificationToken(ctx context.Context, token string) (domain.Account, error)
	GetByResetToken(ctx context.Context, token string) (domain.Account, error)
	List(ctx context.Context, q domain.ListQuery) (domain.Page, error)

	TouchLogin(ctx context.Context, id string, at time.Time) error

	// Issue*Token store a new token only if the previous send stamp is
	// null or not after cutoff. issued=false means the caller is throttled.
	IssueVerificationToken(ctx context.Context, id string, tok domain.IssuedToken, cutoff time.Time) (issued bool, err error)
	IssueResetToken(ctx context.Context, id string, tok domain.IssuedToken, cutoff time.Time) (issued bool, err error)

	// Consume*Token apply the state change and clear the token in one
	// write, conditional on token still being the stored value.
	// A lost race returns domain.ErrInvalidToken.
	ConsumeVerificationToken(ctx context.Context, id, token string) error
	ConsumeResetToken(ctx context.Context, id, token, newHash string) error

	SetBlocked(ctx context.Context, ids []string, blocked bool) (int, error)
	Delete(ctx context.Context, ids []string) (int, error)
	DeleteUnverified(ctx context.Context) (int, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

// EmailKind labels outgoing mail for routing and metrics.
type EmailKind string

const (
	EmailVerify        EmailKind = "verify_email"
	EmailPasswordReset EmailKind = "password_reset"
)

type Email struct {
	Kind    EmailKind `json:"kind"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html"`
}

type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// SessionContext is the per-request session slot. Resolve returns ok=false
// when no account is bound.
type SessionContext interface {
	Resolve(ctx context.Context) (accountID string, ok bool, err error)
	Bind(ctx context.Context, accountID string) error
	Clear(ctx context.Context) error
}
