package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

var errPasswordMismatch = errors.New("password mismatch")

// SHA256Hasher stores lowercase hex SHA-256 of the password, unsalted.
// It matches hashes written by the existing account database. New
// deployments should prefer BcryptHasher.
type SHA256Hasher struct{}

func NewSHA256Hasher() SHA256Hasher { return SHA256Hasher{} }

func (SHA256Hasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

func (h SHA256Hasher) Compare(hash, password string) error {
	want, _ := h.Hash(password)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(want)) != 1 {
		return errPasswordMismatch
	}
	return nil
}
