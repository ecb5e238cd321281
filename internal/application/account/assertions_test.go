package account

import (
	"testing"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}

func requireReason(t *testing.T, err error, want domain.Reason) {
	t.Helper()
	if got := domain.ReasonOf(err); got != want {
		t.Fatalf("expected reason=%q, got %q (err=%v)", want, got, err)
	}
}
