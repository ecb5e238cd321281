package security

import (
	"crypto/rand"
	"encoding/base64"
)

const DefaultTokenBytes = 32

// OpaqueTokens generates URL-safe one-time tokens from crypto/rand.
type OpaqueTokens struct {
	Bytes int
}

func NewOpaqueTokens() OpaqueTokens { return OpaqueTokens{Bytes: DefaultTokenBytes} }

func (g OpaqueTokens) NewToken() (string, error) {
	n := g.Bytes
	if n <= 0 {
		n = DefaultTokenBytes
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
