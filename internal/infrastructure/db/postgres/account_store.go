package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const uniqueViolation = "23505"

type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

// ---------- helpers ----------

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// validIDs drops ids that are not UUIDs; they cannot match a row and
// would make postgres reject the whole statement.
func validIDs(ids []string) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// placeholders returns "$from, $from+1, ..." for n args.
func placeholders(from, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("$")
		b.WriteString(strconv.Itoa(from + i))
	}
	return b.String()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (s *AccountStore) getOne(ctx context.Context, where string, arg any) (domain.Account, error) {
	q := "SELECT " + accountColumns + " FROM users WHERE " + where + " LIMIT 1"
	r, err := scanAccount(s.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound()
		}
		return domain.Account{}, domain.ErrDBUnavailable(err)
	}
	return r.toDomain(), nil
}

func (s *AccountStore) exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", id).Scan(&ok); err != nil {
		return false, domain.ErrDBUnavailable(err)
	}
	return ok, nil
}

func (s *AccountStore) exec(ctx context.Context, q string, args ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	return int(n), nil
}

// ---------- account.AccountStore ----------

func (s *AccountStore) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	a.Email = domain.NormalizeEmail(a.Email)
	if a.ID == "" {
		return domain.Account{}, domain.ErrMissingInput("id")
	}
	if a.Email == "" {
		return domain.Account{}, domain.ErrMissingInput("email")
	}
	if a.PasswordHash == "" {
		return domain.Account{}, domain.ErrMissingInput("password_hash")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	q := `
INSERT INTO users (id, email, password_hash, is_blocked, is_email_verified, created_at,
    email_verification_token, email_verification_token_expires_at, verification_email_last_sent_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + accountColumns

	r, err := scanAccount(s.db.QueryRowContext(ctx, q,
		a.ID, a.Email, a.PasswordHash, a.Blocked, a.EmailVerified, a.CreatedAt,
		toNullString(a.VerificationToken), toNullTime(a.VerificationTokenExpiresAt), toNullTime(a.VerificationSentAt),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, domain.ErrDuplicateEmail()
		}
		return domain.Account{}, domain.ErrDBUnavailable(err)
	}
	return r.toDomain(), nil
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return s.getOne(ctx, "id = $1", id)
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return s.getOne(ctx, "lower(email) = $1", email)
}

func (s *AccountStore) GetByVerificationToken(ctx context.Context, token string) (domain.Account, error) {
	if token == "" {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return s.getOne(ctx, "email_verification_token = $1", token)
}

func (s *AccountStore) GetByResetToken(ctx context.Context, token string) (domain.Account, error) {
	if token == "" {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return s.getOne(ctx, "password_reset_token = $1", token)
}

func listFilter(q domain.ListQuery) (string, []any) {
	var conds []string
	var args []any

	switch q.Status {
	case domain.StatusActive:
		conds = append(conds, "is_blocked = FALSE AND is_email_verified = TRUE")
	case domain.StatusBlocked:
		conds = append(conds, "is_blocked = TRUE")
	case domain.StatusUnverified:
		conds = append(conds, "is_email_verified = FALSE")
	}
	if q.Query != "" {
		args = append(args, "%"+likeEscaper.Replace(q.Query)+"%")
		conds = append(conds, fmt.Sprintf(`lower(email) LIKE $%d ESCAPE '\'`, len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *AccountStore) List(ctx context.Context, q domain.ListQuery) (domain.Page, error) {
	q = q.Normalize()
	where, args := listFilter(q)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return domain.Page{}, domain.ErrDBUnavailable(err)
	}

	n := len(args)
	query := "SELECT " + accountColumns + " FROM users" + where +
		" ORDER BY (last_login_at IS NULL), last_login_at DESC, created_at DESC, id" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, q.PageSize, q.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Page{}, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	items := make([]domain.Account, 0, q.PageSize)
	for rows.Next() {
		r, err := scanAccount(rows)
		if err != nil {
			return domain.Page{}, domain.ErrDBUnavailable(err)
		}
		items = append(items, r.toDomain())
	}
	if err := rows.Err(); err != nil {
		return domain.Page{}, domain.ErrDBUnavailable(err)
	}
	return domain.NewPage(items, total, q), nil
}

func (s *AccountStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	n, err := s.exec(ctx, "UPDATE users SET last_login_at = $2 WHERE id = $1", id, at)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAccountNotFound()
	}
	return nil
}

func (s *AccountStore) IssueVerificationToken(ctx context.Context, id string, tok domain.IssuedToken, cutoff time.Time) (bool, error) {
	const q = `
UPDATE users
SET email_verification_token = $2,
    email_verification_token_expires_at = $3,
    verification_email_last_sent_at = $4
WHERE id = $1
  AND (verification_email_last_sent_at IS NULL OR verification_email_last_sent_at <= $5)`
	return s.issue(ctx, q, id, tok, cutoff)
}

func (s *AccountStore) IssueResetToken(ctx context.Context, id string, tok domain.IssuedToken, cutoff time.Time) (bool, error) {
	const q = `
UPDATE users
SET password_reset_token = $2,
    password_reset_token_expires_at = $3,
    password_reset_last_sent_at = $4
WHERE id = $1
  AND (password_reset_last_sent_at IS NULL OR password_reset_last_sent_at <= $5)`
	return s.issue(ctx, q, id, tok, cutoff)
}

func (s *AccountStore) issue(ctx context.Context, q, id string, tok domain.IssuedToken, cutoff time.Time) (bool, error) {
	n, err := s.exec(ctx, q, id, tok.Value, tok.ExpiresAt, tok.SentAt, cutoff)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	ok, err := s.exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, domain.ErrAccountNotFound()
	}
	return false, nil
}

func (s *AccountStore) ConsumeVerificationToken(ctx context.Context, id, token string) error {
	const q = `
UPDATE users
SET is_email_verified = TRUE,
    email_verification_token = NULL,
    email_verification_token_expires_at = NULL
WHERE id = $1 AND email_verification_token = $2`
	return s.consume(ctx, q, id, token)
}

func (s *AccountStore) ConsumeResetToken(ctx context.Context, id, token, newHash string) error {
	const q = `
UPDATE users
SET password_hash = $3,
    password_reset_token = NULL,
    password_reset_token_expires_at = NULL
WHERE id = $1 AND password_reset_token = $2`
	return s.consume(ctx, q, id, token, newHash)
}

func (s *AccountStore) consume(ctx context.Context, q string, args ...any) error {
	n, err := s.exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrInvalidToken()
	}
	return nil
}

func (s *AccountStore) SetBlocked(ctx context.Context, ids []string, blocked bool) (int, error) {
	args := validIDs(ids)
	if len(args) == 0 {
		return 0, nil
	}
	q := "UPDATE users SET is_blocked = $1 WHERE id IN (" + placeholders(2, len(args)) + ")"
	return s.exec(ctx, q, append([]any{blocked}, args...)...)
}

func (s *AccountStore) Delete(ctx context.Context, ids []string) (int, error) {
	args := validIDs(ids)
	if len(args) == 0 {
		return 0, nil
	}
	return s.exec(ctx, "DELETE FROM users WHERE id IN ("+placeholders(1, len(args))+")", args...)
}

func (s *AccountStore) DeleteUnverified(ctx context.Context) (int, error) {
	return s.exec(ctx, "DELETE FROM users WHERE is_email_verified = FALSE")
}

// Ping backs the readiness probe.
func (s *AccountStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
