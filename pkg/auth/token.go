package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// TokenPrefix identifies gn-auth bearer tokens.
	TokenPrefix = "gna_"
	// TokenLength is the number of random bytes in a token (256 bits).
	TokenLength = 32
)

// GenerateToken creates a new bearer token. The raw token is returned once
// and never stored; only its SHA-256 hash goes into the oauth2_tokens table.
// Format: gna_<base64url(32 random bytes)>.
func GenerateToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	token = TokenPrefix + base64.RawURLEncoding.EncodeToString(randomBytes)
	return token, HashToken(token), nil
}

// HashToken computes the SHA-256 hash of a token for storage and lookup.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks that a presented token has the expected shape
// before any store lookup happens.
func ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}
	encoded := strings.TrimPrefix(token, TokenPrefix)
	if len(encoded) == 0 {
		return fmt.Errorf("token is too short")
	}
	if _, err := base64.RawURLEncoding.DecodeString(encoded); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}
	return nil
}

// ParseScopes splits the space-separated scope column into a scope set.
func ParseScopes(raw string) []string {
	return strings.Fields(raw)
}

// JoinScopes renders a scope set into the space-separated storage form.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}
