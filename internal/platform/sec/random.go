// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

package sec

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateSecureToken returns a URL-safe token with byteLength bytes of
// cryptographic entropy. Used for the volatile reset and verification
// tokens stored in Redis; session tokens use the JWT codec instead.
func GenerateSecureToken(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to read entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
