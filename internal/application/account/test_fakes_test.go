package account

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
Fakes for ports
*/

type fakeStore struct {
	mu   sync.Mutex
	byID map[string]domain.Account

	// injected errors (if set, method returns error)
	getErr     error
	createErr  error
	touchErr   error
	consumeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]domain.Account{}}
}

func (f *fakeStore) put(a domain.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = a
}

func (f *fakeStore) get(t *testing.T, id string) domain.Account {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		t.Fatalf("account %s not in store", id)
	}
	return a
}

func (f *fakeStore) find(match func(domain.Account) bool) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Account{}, f.getErr
	}
	for _, a := range f.byID {
		if match(a) {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound()
}

func (f *fakeStore) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Account{}, f.createErr
	}
	for _, ex := range f.byID {
		if ex.Email == a.Email {
			return domain.Account{}, domain.ErrDuplicateEmail()
		}
	}
	f.byID[a.ID] = a
	return a, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return f.find(func(a domain.Account) bool { return a.ID == id })
}

func (f *fakeStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return f.find(func(a domain.Account) bool { return a.Email == email })
}

func (f *fakeStore) GetByVerificationToken(ctx context.Context, tok string) (domain.Account, error) {
	return f.find(func(a domain.Account) bool { return a.VerificationToken != nil && *a.VerificationToken == tok })
}

func (f *fakeStore) GetByResetToken(ctx context.Context, tok string) (domain.Account, error) {
	return f.find(func(a domain.Account) bool { return a.ResetToken != nil && *a.ResetToken == tok })
}

func (f *fakeStore) List(ctx context.Context, q domain.ListQuery) (domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.Account
	for _, a := range f.byID {
		if q.Matches(a) {
			all = append(all, a)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return domain.ListOrderLess(all[i], all[j]) })
	total := len(all)
	lo := min(q.Offset(), total)
	hi := min(lo+q.PageSize, total)
	return domain.NewPage(all[lo:hi], total, q), nil
}

func (f *fakeStore) update(id string, fn func(*domain.Account) bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return false, domain.ErrAccountNotFound()
	}
	if !fn(&a) {
		return false, nil
	}
	f.byID[id] = a
	return true, nil
}

func (f *fakeStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	_, err := f.update(id, func(a *domain.Account) bool { a.LastLoginAt = &at; return true })
	return err
}

func (f *fakeStore) IssueVerificationToken(ctx context.Context, id string, tok domain.IssuedToken, cutoff time.Time) (bool, error) {
	return f.update(id, func(a *domain.Account) bool {
		if a.VerificationSentAt != nil && a.VerificationSentAt.After(cutoff) {
			return false
		}
		a.VerificationToken, a.VerificationTokenExpiresAt, a.VerificationSentAt = &tok.Value, &tok.ExpiresAt, &tok.SentAt
		return true
	})
}

func (f *fakeStore) IssueResetToken(ctx context.Context, id string, tok domain.IssuedToken, cutoff time.Time) (bool, error) {
	return f.update(id, func(a *domain.Account) bool {
		if a.ResetSentAt != nil && a.ResetSentAt.After(cutoff) {
			return false
		}
		a.ResetToken, a.ResetTokenExpiresAt, a.ResetSentAt = &tok.Value, &tok.ExpiresAt, &tok.SentAt
		return true
	})
}

func (f *fakeStore) ConsumeVerificationToken(ctx context.Context, id, tok string) error {
	if f.consumeErr != nil {
		return f.consumeErr
	}
	ok, err := f.update(id, func(a *domain.Account) bool {
		if a.VerificationToken == nil || *a.VerificationToken != tok {
			return false
		}
		a.EmailVerified = true
		a.VerificationToken, a.VerificationTokenExpiresAt = nil, nil
		return true
	})
	if err == nil && !ok {
		return domain.ErrInvalidToken()
	}
	return err
}

func (f *fakeStore) ConsumeResetToken(ctx context.Context, id, tok, hash string) error {
	if f.consumeErr != nil {
		return f.consumeErr
	}
	ok, err := f.update(id, func(a *domain.Account) bool {
		if a.ResetToken == nil || *a.ResetToken != tok {
			return false
		}
		a.PasswordHash = hash
		a.ResetToken, a.ResetTokenExpiresAt = nil, nil
		return true
	})
	if err == nil && !ok {
		return domain.ErrInvalidToken()
	}
	return err
}

func (f *fakeStore) SetBlocked(ctx context.Context, ids []string, blocked bool) (int, error) {
	n := 0
	for _, id := range ids {
		if ok, _ := f.update(id, func(a *domain.Account) bool { a.Blocked = blocked; return true }); ok {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Delete(ctx context.Context, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := f.byID[id]; ok {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) DeleteUnverified(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, a := range f.byID {
		if !a.EmailVerified {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

// fakeHasher prefixes the password so tests can read stored hashes.
type fakeHasher struct{ err error }

func (h fakeHasher) Hash(pw string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "h:" + pw, nil
}

func (h fakeHasher) Compare(hash, pw string) error {
	if hash != "h:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

type seqTokens struct {
	mu  sync.Mutex
	n   int
	err error
}

func (g *seqTokens) NewToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.n++
	return fmt.Sprintf("tok-%d", g.n), nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeSession struct {
	accountID string
	bound     bool
	cleared   int
	err       error
}

func (s *fakeSession) Resolve(ctx context.Context) (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	return s.accountID, s.bound, nil
}

func (s *fakeSession) Bind(ctx context.Context, id string) error {
	s.accountID, s.bound = id, true
	return nil
}

func (s *fakeSession) Clear(ctx context.Context) error {
	s.accountID, s.bound = "", false
	s.cleared++
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

/*
Factory
*/

type testEnv struct {
	svc    *Service
	store  *fakeStore
	mailer *fakeMailer
	tokens *seqTokens
	clock  *fakeClock
	audits []string
}

func newSvcForTest(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  newFakeStore(),
		mailer: &fakeMailer{},
		tokens: &seqTokens{},
		clock:  &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	if cfg.VerifyEmailBaseURL == "" {
		cfg.VerifyEmailBaseURL = "http://portal/auth/v1/verify-email?token="
	}
	if cfg.PasswordResetBaseURL == "" {
		cfg.PasswordResetBaseURL = "http://portal/reset-password?token="
	}
	ids := 0
	env.svc = NewService(env.store, fakeHasher{}, env.tokens, env.mailer, cfg).
		WithClock(env.clock.now).
		WithAudit(func(action string, _ map[string]string) { env.audits = append(env.audits, action) })
	env.svc.newID = func() string { ids++; return fmt.Sprintf("acc-%d", ids) }
	return env
}

// register creates an account through the service and returns it.
func (e *testEnv) register(t *testing.T, email, pw string) domain.Account {
	t.Helper()
	a, err := e.svc.Register(context.Background(), email, pw)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return a
}

func (e *testEnv) verify(t *testing.T, a domain.Account) {
	t.Helper()
	cur := e.store.get(t, a.ID)
	ok, err := e.svc.VerifyEmail(context.Background(), *cur.VerificationToken)
	if err != nil || !ok {
		t.Fatalf("verify %s: ok=%v err=%v", a.Email, ok, err)
	}
}
