package http_handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/session"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
)

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadData decodes the {"data": ...} envelope into out.
func mustReadData(t *testing.T, r io.Reader, out any) {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	wrapped := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped.Data) == 0 {
		t.Fatalf("decode json failed; body=%s", string(raw))
	}
	if err := json.Unmarshal(wrapped.Data, out); err != nil {
		t.Fatalf("decode wrapped.data failed; body=%s err=%v", string(raw), err)
	}
}

// mustErrorCode returns error.code from an error body.
func mustErrorCode(t *testing.T, body *bytes.Buffer) string {
	t.Helper()

	var out struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v; body=%s", err, body.String())
	}
	return out.Error.Code
}

// readCookie finds cookie by name from response headers.
func readCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func newTestSessions() *session.Manager {
	return session.NewManager(
		memory.NewSessionStore(),
		security.NewSessionCookieCodec("test-secret", "account-service"),
		session.Config{},
	)
}

// serve runs h behind the session middleware.
func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	middleware.Session(newTestSessions())(h).ServeHTTP(rr, req)
	return rr
}

func stringsReader(s string) io.Reader { return bytes.NewReader([]byte(s)) }
