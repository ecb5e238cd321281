package audit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.com": "al***@example.com",
		"a@example.com":     "a***@example.com",
		"a@b":               "***",
		"nodomain":          "no***",
	}
	for in, want := range cases {
		assert.Equal(t, want, maskEmail(in), in)
	}
}

func TestRecord_MasksEmailAndPicksLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	l.Record("account.login_failed", map[string]string{"email": "alice@example.com", "reason": "invalid_credentials"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, true, line["audit"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "account.login_failed", line["action"])
	assert.Equal(t, "al***@example.com", line["email"])

	buf.Reset()
	l.Record("account.login", map[string]string{"account_id": "a1"})
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
}
