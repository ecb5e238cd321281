package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const accountColumns = `id, email, password_hash, is_blocked, is_email_verified, created_at, last_login_at,
email_verification_token, email_verification_token_expires_at, verification_email_last_sent_at,
password_reset_token, password_reset_token_expires_at, password_reset_last_sent_at`

type accountRow struct {
	ID            string
	Email         string
	PasswordHash  string
	Blocked       bool
	EmailVerified bool
	CreatedAt     time.Time
	LastLoginAt   sql.NullTime

	VerificationToken          sql.NullString
	VerificationTokenExpiresAt sql.NullTime
	VerificationSentAt         sql.NullTime

	ResetToken          sql.NullString
	ResetTokenExpiresAt sql.NullTime
	ResetSentAt         sql.NullTime
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(s rowScanner) (accountRow, error) {
	var r accountRow
	err := s.Scan(
		&r.ID,
		&r.Email,
		&r.PasswordHash,
		&r.Blocked,
		&r.EmailVerified,
		&r.CreatedAt,
		&r.LastLoginAt,
		&r.VerificationToken,
		&r.VerificationTokenExpiresAt,
		&r.VerificationSentAt,
		&r.ResetToken,
		&r.ResetTokenExpiresAt,
		&r.ResetSentAt,
	)
	return r, err
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:            r.ID,
		Email:         r.Email,
		PasswordHash:  r.PasswordHash,
		Blocked:       r.Blocked,
		EmailVerified: r.EmailVerified,
		CreatedAt:     r.CreatedAt.UTC(),
		LastLoginAt:   nullTime(r.LastLoginAt),

		VerificationToken:          nullString(r.VerificationToken),
		VerificationTokenExpiresAt: nullTime(r.VerificationTokenExpiresAt),
		VerificationSentAt:         nullTime(r.VerificationSentAt),

		ResetToken:          nullString(r.ResetToken),
		ResetTokenExpiresAt: nullTime(r.ResetTokenExpiresAt),
		ResetSentAt:         nullTime(r.ResetSentAt),
	}
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
