package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/session"
)

// SessionStore keeps sess:<sid> -> account id with a TTL.
type SessionStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewSessionStore(c *Client) *SessionStore {
	return &SessionStore{rdb: c.rdb, prefix: "sess:"}
}

func (s *SessionStore) Get(ctx context.Context, sid string) (string, error) {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return "", session.ErrNotFound
	}
	v, err := s.rdb.Get(ctx, s.prefix+sid).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", session.ErrNotFound
		}
		return "", domain.ErrRedisUnavailable(err)
	}
	return v, nil
}

func (s *SessionStore) Set(ctx context.Context, sid, accountID string, ttl time.Duration) error {
	if strings.TrimSpace(sid) == "" {
		return domain.ErrMissingInput("session_id")
	}
	if err := s.rdb.Set(ctx, s.prefix+sid, accountID, ttl).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, s.prefix+sid).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}
