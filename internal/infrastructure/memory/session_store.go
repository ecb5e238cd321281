package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/session"
)

type sessionEntry struct {
	accountID string
	expiresAt time.Time
}

const sweepEvery = time.Minute

// SessionStore keeps sessions in process memory. Used when Redis is not
// configured; sessions do not survive a restart. Expired entries are
// dropped on read and by a sweep that Set runs at most once per sweepEvery.
type SessionStore struct {
	mu        sync.Mutex
	m         map[string]sessionEntry
	now       func() time.Time
	nextSweep time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{m: make(map[string]sessionEntry), now: time.Now}
}

func (s *SessionStore) Get(ctx context.Context, sid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[sid]
	if !ok {
		return "", session.ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.m, sid)
		return "", session.ErrNotFound
	}
	return e.accountID, nil
}

func (s *SessionStore) Set(ctx context.Context, sid, accountID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.Before(s.nextSweep) {
		s.sweepLocked(now)
		s.nextSweep = now.Add(sweepEvery)
	}
	s.m[sid] = sessionEntry{accountID: accountID, expiresAt: now.Add(ttl)}
	return nil
}

func (s *SessionStore) sweepLocked(now time.Time) {
	for sid, e := range s.m {
		if !now.Before(e.expiresAt) {
			delete(s.m, sid)
		}
	}
}

func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, sid)
	return nil
}
