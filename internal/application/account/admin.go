package account

import (
	"context"
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

func (s *Service) List(ctx context.Context, q domain.ListQuery) (domain.Page, error) {
	return s.store.List(ctx, q.Normalize())
}

// Block, Unblock and Delete skip unknown ids and return how many accounts
// were affected.
func (s *Service) Block(ctx context.Context, ids []string) (int, error) {
	return s.setBlocked(ctx, ids, true)
}

func (s *Service) Unblock(ctx context.Context, ids []string) (int, error) {
	return s.setBlocked(ctx, ids, false)
}

func (s *Service) setBlocked(ctx context.Context, ids []string, blocked bool) (int, error) {
	ids = cleanIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.store.SetBlocked(ctx, ids, blocked)
	if err != nil {
		return 0, err
	}
	action := "account.unblocked"
	if blocked {
		action = "account.blocked"
	}
	s.audit(action, map[string]string{"ids": strings.Join(ids, ","), "count": strconv.Itoa(n)})
	return n, nil
}

func (s *Service) Delete(ctx context.Context, ids []string) (int, error) {
	ids = cleanIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.store.Delete(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.audit("account.deleted", map[string]string{"ids": strings.Join(ids, ","), "count": strconv.Itoa(n)})
	return n, nil
}

func (s *Service) DeleteUnverified(ctx context.Context) (int, error) {
	n, err := s.store.DeleteUnverified(ctx)
	if err != nil {
		return 0, err
	}
	s.audit("account.unverified_purged", map[string]string{"count": strconv.Itoa(n)})
	return n, nil
}

func cleanIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
