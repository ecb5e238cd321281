package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

func TestRegister_NormalizesAndSendsVerification(t *testing.T) {
	env := newSvcForTest(t, Config{})

	a := env.register(t, "  Alice@Example.com ", "pw")

	if a.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", a.Email)
	}
	if a.EmailVerified || a.Blocked {
		t.Fatalf("new account must be unverified and unblocked: %+v", a)
	}
	if a.PasswordHash != "h:pw" {
		t.Fatalf("password not hashed through hasher: %q", a.PasswordHash)
	}
	if a.VerificationToken == nil || *a.VerificationToken != "tok-1" {
		t.Fatalf("missing verification token")
	}
	if !a.VerificationTokenExpiresAt.Equal(env.clock.t.Add(24 * time.Hour)) {
		t.Fatalf("verification expiry = %v", a.VerificationTokenExpiresAt)
	}
	if a.VerificationSentAt == nil || !a.VerificationSentAt.Equal(env.clock.t) {
		t.Fatalf("sent stamp not set")
	}

	if env.mailer.count() != 1 {
		t.Fatalf("expected 1 email, got %d", env.mailer.count())
	}
	msg := env.mailer.sent[0]
	if msg.Kind != EmailVerify || msg.To != "alice@example.com" {
		t.Fatalf("unexpected email: %+v", msg)
	}
	if !strings.Contains(msg.HTML, "verify-email?token=tok-1") || !strings.Contains(msg.HTML, "24 hours") {
		t.Fatalf("email body missing link or expiry: %s", msg.HTML)
	}
}

func TestRegister_DuplicateEmailCaseInsensitive(t *testing.T) {
	env := newSvcForTest(t, Config{})
	env.register(t, "bob@x.io", "pw")

	_, err := env.svc.Register(context.Background(), "BOB@X.IO", "other")
	requireErrCode(t, err, domain.CodeDuplicateEmail)

	if env.mailer.count() != 1 {
		t.Fatalf("duplicate registration must not send email")
	}
}

func TestRegister_MissingInput(t *testing.T) {
	env := newSvcForTest(t, Config{})
	for _, tc := range []struct{ email, pw string }{{"", "pw"}, {"   ", "pw"}, {"a@x.io", ""}, {"a@x.io", "  "}} {
		_, err := env.svc.Register(context.Background(), tc.email, tc.pw)
		requireErrCode(t, err, domain.CodeMissingInput)
	}
}

func TestRegister_EmailFailurePropagatesButAccountStays(t *testing.T) {
	env := newSvcForTest(t, Config{})
	env.mailer.err = errors.New("smtp down")

	a, err := env.svc.Register(context.Background(), "c@x.io", "pw")
	requireErrCode(t, err, domain.CodeEmailDelivery)

	if got := env.store.get(t, a.ID); got.Email != "c@x.io" {
		t.Fatalf("account should remain stored")
	}
}

func TestRegister_EmailBestEffortSwallowsFailure(t *testing.T) {
	env := newSvcForTest(t, Config{EmailBestEffort: true})
	env.mailer.err = errors.New("smtp down")
	var logged string
	env.svc.WithErrorLog(func(_ context.Context, op string, _ error) { logged = op })

	if _, err := env.svc.Register(context.Background(), "d@x.io", "pw"); err != nil {
		t.Fatalf("best-effort register failed: %v", err)
	}
	if logged != "register" {
		t.Fatalf("expected failure to be logged, got %q", logged)
	}
}

func TestRegister_HashAndRandomFailures(t *testing.T) {
	env := newSvcForTest(t, Config{})
	env.svc.hasher = fakeHasher{err: errors.New("boom")}
	_, err := env.svc.Register(context.Background(), "e@x.io", "pw")
	requireErrCode(t, err, domain.CodeHashFailed)

	env = newSvcForTest(t, Config{})
	env.tokens.err = errors.New("no entropy")
	_, err = env.svc.Register(context.Background(), "e@x.io", "pw")
	requireErrCode(t, err, domain.CodeRandomFailed)
}

func TestLogin_Success_BindsSessionAndStampsLogin(t *testing.T) {
	env := newSvcForTest(t, Config{})
	a := env.register(t, "u@x.io", "pw")
	sess := &fakeSession{}

	got, err := env.svc.Login(context.Background(), sess, " U@X.IO ", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != a.ID || !sess.bound || sess.accountID != a.ID {
		t.Fatalf("session not bound: %+v", sess)
	}
	stored := env.store.get(t, a.ID)
	if stored.LastLoginAt == nil || !stored.LastLoginAt.Equal(env.clock.t) {
		t.Fatalf("last login not stamped")
	}
}

func TestLogin_UnverifiedStillAuthenticates(t *testing.T) {
	env := newSvcForTest(t, Config{})
	env.register(t, "u@x.io", "pw")
	sess := &fakeSession{}

	if _, err := env.svc.Login(context.Background(), sess, "u@x.io", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	d, err := env.svc.CheckVerified(context.Background(), sess)
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	if d.Allowed || d.Reason != domain.ReasonUnverified || sess.bound {
		t.Fatalf("expected unverified denial with cleared session, got %+v sess=%+v", d, sess)
	}
}

func TestLogin_InvalidCredentialsIndistinguishable(t *testing.T) {
	env := newSvcForTest(t, Config{})
	env.register(t, "u@x.io", "pw")

	_, errWrongPw := env.svc.Login(context.Background(), &fakeSession{}, "u@x.io", "nope")
	_, errUnknown := env.svc.Login(context.Background(), &fakeSession{}, "ghost@x.io", "pw")

	requireErrCode(t, errWrongPw, domain.CodeInvalidCredentials)
	requireErrCode(t, errUnknown, domain.CodeInvalidCredentials)
	if errWrongPw.Error() != errUnknown.Error() {
		t.Fatalf("errors differ: %v vs %v", errWrongPw, errUnknown)
	}
}

func TestLogin_BlockedClearsSession(t *testing.T) {
	env := newSvcForTest(t, Config{})
	a := env.register(t, "u@x.io", "pw")
	env.verify(t, a)
	if _, err := env.svc.Block(context.Background(), []string{a.ID}); err != nil {
		t.Fatal(err)
	}

	sess := &fakeSession{accountID: "stale", bound: true}
	_, err := env.svc.Login(context.Background(), sess, "u@x.io", "pw")
	requireErrCode(t, err, domain.CodeAccountBlocked)
	requireReason(t, err, domain.ReasonBlocked)
	if sess.bound || sess.cleared != 1 {
		t.Fatalf("blocked login must clear session: %+v", sess)
	}
	if env.store.get(t, a.ID).LastLoginAt != nil {
		t.Fatalf("blocked login must not stamp last login")
	}
}

func TestLogin_StoreErrorPropagates(t *testing.T) {
	env := newSvcForTest(t, Config{})
	env.store.getErr = domain.ErrDBUnavailable(errors.New("conn refused"))

	_, err := env.svc.Login(context.Background(), &fakeSession{}, "u@x.io", "pw")
	requireErrCode(t, err, domain.CodeDBUnavailable)
}

func TestLogout_Idempotent(t *testing.T) {
	env := newSvcForTest(t, Config{})
	sess := &fakeSession{}
	for i := 0; i < 2; i++ {
		if err := env.svc.Logout(context.Background(), sess); err != nil {
			t.Fatalf("logout: %v", err)
		}
	}
	if sess.cleared != 2 {
		t.Fatalf("expected 2 clears, got %d", sess.cleared)
	}
}
