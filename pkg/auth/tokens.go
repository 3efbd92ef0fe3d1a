package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenStore issues and revokes bearer tokens. The raw token is handed out
// exactly once at issue time; the store only ever sees its hash again.
type TokenStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewTokenStore creates a token store over the given database handle.
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db, now: time.Now}
}

// RegisterClient inserts an OAuth2 client record. Idempotent on client id.
func (s *TokenStore) RegisterClient(ctx context.Context, client Client) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO oauth2_clients(client_id, client_name) VALUES (?, ?)",
		client.ClientID.String(), client.ClientName)
	if err != nil {
		return fmt.Errorf("failed to register client: %w", err)
	}
	return nil
}

// Issue mints a bearer token for the user on behalf of the client. Returns
// the raw token, which cannot be recovered later.
func (s *TokenStore) Issue(ctx context.Context, client Client, user User, scopes []string, lifetime time.Duration) (string, *AccessToken, error) {
	raw, hash, err := GenerateToken()
	if err != nil {
		return "", nil, err
	}

	token := &AccessToken{
		TokenID:   uuid.New(),
		Client:    client,
		User:      user,
		Scopes:    scopes,
		IssuedAt:  s.now(),
		ExpiresAt: s.now().Add(lifetime),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO oauth2_tokens
			(token_id, token_hash, client_id, user_id, scope, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token.TokenID.String(), hash, client.ClientID.String(),
		user.UserID.String(), JoinScopes(scopes),
		token.IssuedAt.Unix(), token.ExpiresAt.Unix())
	if err != nil {
		return "", nil, fmt.Errorf("failed to store token: %w", err)
	}
	return raw, token, nil
}

// Revoke marks a token revoked. Revoked tokens fail resolution as unknown.
func (s *TokenStore) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE oauth2_tokens SET revoked = 1 WHERE token_id = ?",
		tokenID.String())
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
