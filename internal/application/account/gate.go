package account

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// GateDecision is the outcome of an access check. A denied decision may
// carry a reason code for the login redirect.
type GateDecision struct {
	Allowed bool
	Reason  domain.Reason
	Account domain.Account
}

func allow(a domain.Account) GateDecision { return GateDecision{Allowed: true, Account: a} }

func deny(r domain.Reason) GateDecision { return GateDecision{Reason: r} }

// CheckVerified admits a session bound to an existing, unblocked, verified
// account. Every denial except "no session" also clears the session.
func (s *Service) CheckVerified(ctx context.Context, sess SessionContext) (GateDecision, error) {
	a, found, err := s.resolveAccount(ctx, sess)
	if err != nil {
		return GateDecision{}, err
	}
	if !found {
		return deny(domain.ReasonLogin), nil
	}

	switch {
	case a.Blocked:
		if err := sess.Clear(ctx); err != nil {
			return GateDecision{}, err
		}
		return deny(domain.ReasonBlocked), nil
	case !a.EmailVerified:
		if err := sess.Clear(ctx); err != nil {
			return GateDecision{}, err
		}
		return deny(domain.ReasonUnverified), nil
	}
	return allow(a), nil
}

// CheckActive admits the same accounts as CheckVerified but never says why
// it refused. The session is kept unless the account no longer exists.
func (s *Service) CheckActive(ctx context.Context, sess SessionContext) (GateDecision, error) {
	a, found, err := s.resolveAccount(ctx, sess)
	if err != nil {
		return GateDecision{}, err
	}
	if !found || !a.IsActive() {
		return deny(""), nil
	}
	return allow(a), nil
}

// resolveAccount loads the bound account fresh from the store. A session
// pointing at a deleted account is cleared and reported as not found.
func (s *Service) resolveAccount(ctx context.Context, sess SessionContext) (domain.Account, bool, error) {
	id, ok, err := sess.Resolve(ctx)
	if err != nil {
		return domain.Account{}, false, err
	}
	if !ok {
		return domain.Account{}, false, nil
	}

	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		if domain.Is(err, domain.CodeNotFound) {
			if cerr := sess.Clear(ctx); cerr != nil {
				return domain.Account{}, false, cerr
			}
			return domain.Account{}, false, nil
		}
		return domain.Account{}, false, err
	}
	return a, true, nil
}

// Me returns the account behind an active session.
func (s *Service) Me(ctx context.Context, sess SessionContext) (domain.Account, bool, error) {
	d, err := s.CheckActive(ctx, sess)
	if err != nil || !d.Allowed {
		return domain.Account{}, false, err
	}
	return d.Account, true, nil
}
