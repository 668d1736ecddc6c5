package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// InvitationTokenBytes is the entropy of an invitation token
const InvitationTokenBytes = 32

// GenerateURLToken returns n random bytes encoded as unpadded URL-safe base64
func GenerateURLToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
