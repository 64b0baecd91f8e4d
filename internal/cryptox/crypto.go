// Package cryptox holds small hashing helpers shared by the server.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
)

// TokenDigest returns the hex SHA-256 of a bearer token. Session tokens are
// persisted only in this form.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
