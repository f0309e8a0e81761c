package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// maxPresentedSecretLength bounds what a client can make us look up
const maxPresentedSecretLength = 4096

// generateSecret returns n random bytes encoded as unpadded base64url
func generateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// normalizeSecret trims surrounding whitespace only. Matching stays exact.
func normalizeSecret(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxPresentedSecretLength {
		return "", false
	}
	return s, true
}
