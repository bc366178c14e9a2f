// Package token generates unguessable endpoint identifiers.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// New returns a 64-character lowercase hex identifier. The raw entropy is
// hex-encoded and hashed so the output length and alphabet stay fixed even
// if the random source carries subtle bias.
func New() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("token: entropy source unavailable: " + err.Error())
	}
	sum := sha256.Sum256([]byte(hex.EncodeToString(buf)))
	return hex.EncodeToString(sum[:])
}
