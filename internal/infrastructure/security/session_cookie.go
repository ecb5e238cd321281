package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrSessionCookieInvalid = errors.New("invalid session cookie")

// SessionCookieCodec signs session ids into HS256 tokens so a cookie
// cannot be forged or guessed into another session.
type SessionCookieCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewSessionCookieCodec(secret, issuer string) *SessionCookieCodec {
	return &SessionCookieCodec{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (c *SessionCookieCodec) Encode(sessionID string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *SessionCookieCodec) Decode(value string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(value, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return "", ErrSessionCookieInvalid
	}
	return claims.ID, nil
}
