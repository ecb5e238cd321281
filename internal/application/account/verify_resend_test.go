package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

func TestVerifyEmail_SingleUse(t *testing.T) {
	env := newSvcForTest(t, Config{})
	a := env.register(t, "v@x.io", "pw")

	ok, err := env.svc.VerifyEmail(context.Background(), "  tok-1 ")
	if err != nil || !ok {
		t.Fatalf("first verify: ok=%v err=%v", ok, err)
	}
	got := env.store.get(t, a.ID)
	if !got.EmailVerified || got.VerificationToken != nil || got.VerificationTokenExpiresAt != nil {
		t.Fatalf("token not consumed: %+v", got)
	}

	ok, err = env.svc.VerifyEmail(context.Background(), "tok-1")
	if err != nil || ok {
		t.Fatalf("second verify must be a silent no-op: ok=%v err=%v", ok, err)
	}
}

func TestVerifyEmail_SilentFailures(t *testing.T) {
	env := newSvcForTest(t, Config{})
	a := env.register(t, "v@x.io", "pw")

	for _, tok := range []string{"", "   ", "unknown"} {
		ok, err := env.svc.VerifyEmail(context.Background(), tok)
		if err != nil || ok {
			t.Fatalf("token %q: ok=%v err=%v", tok, ok, err)
		}
	}

	env.clock.advance(24*time.Hour + time.Second)
	ok, err := env.svc.VerifyEmail(context.Background(), "tok-1")
	if err != nil || ok {
		t.Fatalf("expired token: ok=%v err=%v", ok, err)
	}
	if env.store.get(t, a.ID).EmailVerified {
		t.Fatalf("expired token must not verify")
	}
}

func TestVerifyEmail_StoreErrorPropagates(t *testing.T) {
	env := newSvcForTest(t, Config{})
	env.store.getErr = domain.ErrDBUnavailable(errors.New("down"))

	_, err := env.svc.VerifyEmail(context.Background(), "tok")
	requireErrCode(t, err, domain.CodeDBUnavailable)
}

func TestVerifyEmail_LostRaceIsSilent(t *testing.T) {
	env := newSvcForTest(t, Config{})
	env.register(t, "v@x.io", "pw")
	env.store.consumeErr = domain.ErrInvalidToken()

	ok, err := env.svc.VerifyEmail(context.Background(), "tok-1")
	if err != nil || ok {
		t.Fatalf("lost race: ok=%v err=%v", ok, err)
	}
}

func TestResendVerification_Flow(t *testing.T) {
	env := newSvcForTest(t, Config{})
	ctx := context.Background()
	a := env.register(t, "r@x.io", "pw")

	err := env.svc.ResendVerification(ctx, "r@x.io")
	requireErrCode(t, err, domain.CodeRateLimited)
	requireReason(t, err, domain.ReasonWait)
	if *env.store.get(t, a.ID).VerificationToken != "tok-1" {
		t.Fatalf("throttled resend must not replace token")
	}

	env.clock.advance(time.Minute)
	if err := env.svc.ResendVerification(ctx, "R@x.io"); err != nil {
		t.Fatalf("resend after cooldown: %v", err)
	}
	got := env.store.get(t, a.ID)
	if *got.VerificationToken != "tok-2" || !got.VerificationSentAt.Equal(env.clock.t) {
		t.Fatalf("token not rotated: %+v", got)
	}
	if env.mailer.count() != 2 {
		t.Fatalf("expected 2 emails, got %d", env.mailer.count())
	}

	ok, _ := env.svc.VerifyEmail(ctx, "tok-1")
	if ok {
		t.Fatalf("old token must no longer verify")
	}
}

func TestResendVerification_Errors(t *testing.T) {
	env := newSvcForTest(t, Config{})
	ctx := context.Background()

	requireErrCode(t, env.svc.ResendVerification(ctx, " "), domain.CodeMissingInput)
	requireErrCode(t, env.svc.ResendVerification(ctx, "ghost@x.io"), domain.CodeNotFound)

	a := env.register(t, "done@x.io", "pw")
	env.verify(t, a)
	requireErrCode(t, env.svc.ResendVerification(ctx, "done@x.io"), domain.CodeAlreadyVerified)
}
