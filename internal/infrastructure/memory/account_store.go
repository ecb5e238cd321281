package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// AccountStore is the in-process account store used in dev and tests.
type AccountStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.Account
	byEmail map[string]string // normalized email -> id
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

func (s *AccountStore) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	a.Email = domain.NormalizeEmail(a.Email)
	if a.ID == "" {
		return domain.Account{}, domain.ErrMissingInput("id")
	}
	if a.Email == "" {
		return domain.Account{}, domain.ErrMissingInput("email")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[a.Email]; exists {
		return domain.Account{}, domain.ErrDuplicateEmail()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.byID[a.ID] = a
	s.byEmail[a.Email] = a.ID
	return a, nil
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return a, nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return s.byID[id], nil
}

func (s *AccountStore) GetByVerificationToken(ctx context.Context, token string) (domain.Account, error) {
	return s.findBy(func(a domain.Account) bool {
		return token != "" && a.VerificationToken != nil && *a.VerificationToken == token
	})
}

func (s *AccountStore) GetByResetToken(ctx context.Context, token string) (domain.Account, error) {
	return s.findBy(func(a domain.Account) bool {
		return token != "" && a.ResetToken != nil && *a.ResetToken == token
	})
}

func (s *AccountStore) findBy(match func(domain.Account) bool) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.byID {
		if match(a) {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound()
}

func (s *AccountStore) List(ctx context.Context, q domain.ListQuery) (domain.Page, error) {
	q = q.Normalize()

	s.mu.RLock()
	matched := make([]domain.Account, 0, len(s.byID))
	for _, a := range s.byID {
		if q.Matches(a) {
			matched = append(matched, a)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if domain.ListOrderLess(matched[i], matched[j]) {
			return true
		}
		if domain.ListOrderLess(matched[j], matched[i]) {
			return false
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	lo := min(q.Offset(), total)
	hi := min(lo+q.PageSize, total)
	return domain.NewPage(matched[lo:hi], total, q), nil
}

// mutate applies fn under the write lock. fn returns false to leave the
// account untouched.
func (s *AccountStore) mutate(id string, fn func(*domain.Account) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return false, domain.ErrAccountNotFound()
	}
	if !fn(&a) {
		return false, nil
	}
	s.byID[id] = a
	return true, nil
}

func (s *AccountStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.mutate(id, func(a *domain.Account) bool {
		a.LastLoginAt = &at
		return true
	})
	return err
}

func (s *AccountStore) IssueVerificationToken(ctx context.Context, id string, tok domain.IssuedToken, cutoff time.Time) (bool, error) {
	return s.mutate(id, func(a *domain.Account) bool {
		if a.VerificationSentAt != nil && a.VerificationSentAt.After(cutoff) {
			return false
		}
		a.VerificationToken = &tok.Value
		a.VerificationTokenExpiresAt = &tok.ExpiresAt
		a.VerificationSentAt = &tok.SentAt
		return true
	})
}

func (s *AccountStore) IssueResetToken(ctx context.Context, id string, tok domain.IssuedToken, cutoff time.Time) (bool, error) {
	return s.mutate(id, func(a *domain.Account) bool {
		if a.ResetSentAt != nil && a.ResetSentAt.After(cutoff) {
			return false
		}
		a.ResetToken = &tok.Value
		a.ResetTokenExpiresAt = &tok.ExpiresAt
		a.ResetSentAt = &tok.SentAt
		return true
	})
}

func (s *AccountStore) ConsumeVerificationToken(ctx context.Context, id, token string) error {
	ok, err := s.mutate(id, func(a *domain.Account) bool {
		if a.VerificationToken == nil || *a.VerificationToken != token {
			return false
		}
		a.EmailVerified = true
		a.VerificationToken = nil
		a.VerificationTokenExpiresAt = nil
		return true
	})
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidToken()
	}
	return nil
}

func (s *AccountStore) ConsumeResetToken(ctx context.Context, id, token, newHash string) error {
	ok, err := s.mutate(id, func(a *domain.Account) bool {
		if a.ResetToken == nil || *a.ResetToken != token {
			return false
		}
		a.PasswordHash = newHash
		a.ResetToken = nil
		a.ResetTokenExpiresAt = nil
		return true
	})
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidToken()
	}
	return nil
}

func (s *AccountStore) SetBlocked(ctx context.Context, ids []string, blocked bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range ids {
		a, ok := s.byID[id]
		if !ok {
			continue
		}
		a.Blocked = blocked
		s.byID[id] = a
		n++
	}
	return n, nil
}

func (s *AccountStore) Delete(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range ids {
		a, ok := s.byID[id]
		if !ok {
			continue
		}
		delete(s.byID, id)
		delete(s.byEmail, a.Email)
		n++
	}
	return n, nil
}

func (s *AccountStore) DeleteUnverified(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, a := range s.byID {
		if a.EmailVerified {
			continue
		}
		delete(s.byID, id)
		delete(s.byEmail, a.Email)
		n++
	}
	return n, nil
}
