package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is an account in the authorisation store. Immutable once created
// except for its password.
type User struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
}

// Client is a registered OAuth2 client application.
type Client struct {
	ClientID   uuid.UUID `json:"client_id"`
	ClientName string    `json:"client_name"`
}

// AccessToken is a bearer token resolved from the oauth2_tokens table.
// Its Scopes set is the ceiling for acquisition: the boundary refuses to
// acquire a scope not present here, regardless of the user's role grants.
type AccessToken struct {
	TokenID   uuid.UUID
	Client    Client
	User      User
	Scopes    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token's lifetime has elapsed at the given
// instant.
func (t *AccessToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// HasScope checks the token's granted scope set for an exact member.
func (t *AccessToken) HasScope(scope string) bool {
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// HasScopes reports whether every wanted scope is within the token's
// granted set.
func (t *AccessToken) HasScopes(scopes ...string) bool {
	for _, s := range scopes {
		if !t.HasScope(s) {
			return false
		}
	}
	return true
}
