// Package secrets generates and hashes claim tokens.
//
// Certificates must be explicitly claimed by the recipient. The cleartext
// token is delivered out-of-band once at issuance; only the bcrypt hash is
// persisted, so a leaked store cannot be used to claim on someone's behalf.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const tokenBytes = 32

// Generate returns a URL-safe random token.
func Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the bcrypt hash of a token for storage.
func Hash(token string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether the token matches the stored hash.
func Compare(hash, token string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
