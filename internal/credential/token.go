// Package credential issues, authenticates and manages API tokens.
package credential

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/sipico/archive-api/internal/models"
)

// tokenBytes is the amount of entropy behind every token.
const tokenBytes = models.TokenLength / 2

// GenerateToken returns a fresh 32-character lowercase hex secret read from
// the system CSPRNG.
func GenerateToken() (string, error) {
	return generateToken(rand.Reader)
}

func generateToken(r io.Reader) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to read token entropy: %w", err)
	}
	return hex.EncodeToString(b), nil
}
