package bootstrap

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
)

// rateLimiter exposes the redis fixed-window counter as middleware.RateLimiter.
type rateLimiter struct {
	l *redis.FixedWindowLimiter
}

func (r rateLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (middleware.Decision, error) {
	d, err := r.l.AllowFixedWindow(ctx, key, limit, window)
	if err != nil {
		return middleware.Decision{}, err
	}
	return middleware.Decision{
		Allowed:    d.Allowed,
		Limit:      d.Limit,
		Remaining:  d.Remaining,
		RetryAfter: d.RetryAfter,
	}, nil
}
