package rsvp

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewToken mints an anonymous response token: 16 bytes from a cryptographic
// source, hex-encoded. Tokens are treated as globally unique; a failing
// random source aborts the submission rather than falling back to anything
// weaker.
func NewToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
