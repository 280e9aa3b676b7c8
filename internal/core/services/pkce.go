package services

import (
	"crypto/rand"
	"encoding/base64"
)

// PKCE code verifier length (RFC 7636 recommends 43-128 characters).
const codeVerifierLength = 64

// stateLength is the number of random bytes in an OAuth state parameter.
const stateLength = 32

// generateCodeVerifier creates a cryptographically random code verifier for PKCE.
func generateCodeVerifier() (string, error) {
	return randomURLString(codeVerifierLength)
}

// generateState creates a random state parameter for CSRF protection.
func generateState() (string, error) {
	return randomURLString(stateLength)
}

func randomURLString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
