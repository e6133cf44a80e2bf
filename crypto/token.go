// Package crypto provides random token and identifier generation used for
// default ID generation and OAuth state.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Token returns a URL-safe base64 token built from n random bytes.
func Token(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HexToken returns a hex token built from n random bytes.
func HexToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateID returns a unique identifier. The configuration layer installs
// it as the default ID generator.
func GenerateID() string {
	return uuid.NewString()
}

// GenerateStateToken returns an opaque state token for OAuth flows.
func GenerateStateToken() (string, error) {
	return Token(32)
}
