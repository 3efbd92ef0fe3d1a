package auth

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Boundary validates inbound bearer tokens and resolves them to
// (user, client, granted scopes). A request moves through
// unauthenticated -> token-presented -> one of {valid-and-scoped,
// valid-but-underscoped, invalid-or-expired}; only valid-and-scoped
// yields an AccessToken.
type Boundary struct {
	db  *sql.DB
	now func() time.Time
}

// NewBoundary creates a token boundary over the authorisation store.
func NewBoundary(db *sql.DB) *Boundary {
	return &Boundary{db: db, now: time.Now}
}

// Acquire validates the request's bearer token and checks every wanted
// scope against the token's granted set. It pins a dedicated store
// connection for the token's use and returns a release function that must
// be called on every exit path.
//
// Error codes: missing_authorization when no token was presented at all
// (callers with a public subset degrade to the anonymous view on this
// code), invalid_token for malformed or unknown tokens, expired_token
// past the token's lifetime, insufficient_scope when the token is valid
// but its scope ceiling does not cover the wanted scopes.
func (b *Boundary) Acquire(ctx context.Context, r *http.Request, scopes ...string) (*AccessToken, func(), error) {
	raw, err := bearerToken(r)
	if err != nil {
		return nil, nil, err
	}

	conn, err := b.db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire store connection: %w", err)
	}
	release := func() { conn.Close() }

	token, err := b.lookup(ctx, conn, raw)
	if err != nil {
		release()
		return nil, nil, err
	}
	if token.Expired(b.now()) {
		release()
		return nil, nil, NewTokenError(CodeExpiredToken, "the access token has expired")
	}
	if !token.HasScopes(scopes...) {
		release()
		return nil, nil, NewTokenError(
			CodeInsufficientScope,
			fmt.Sprintf("the token is not scoped for %q", strings.Join(scopes, " ")))
	}
	return token, release, nil
}

// bearerToken extracts the raw token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", NewTokenError(CodeMissingAuthorization, "no authorization header was provided")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", NewTokenError(CodeInvalidToken, "invalid authorization header format")
	}
	if err := ValidateTokenFormat(parts[1]); err != nil {
		return "", NewTokenError(CodeInvalidToken, err.Error())
	}
	return parts[1], nil
}

func (b *Boundary) lookup(ctx context.Context, conn *sql.Conn, raw string) (*AccessToken, error) {
	query := `
		SELECT t.token_id, t.scope, t.issued_at, t.expires_at,
		       c.client_id, c.client_name,
		       u.user_id, u.email, u.name
		FROM oauth2_tokens t
		JOIN oauth2_clients c ON c.client_id = t.client_id
		JOIN users u ON u.user_id = t.user_id
		WHERE t.token_hash = ? AND t.revoked = 0
	`

	var (
		token                     AccessToken
		tokenID, clientID, userID string
		scope                     string
		issuedAt, expiresAt       int64
	)
	err := conn.QueryRowContext(ctx, query, HashToken(raw)).Scan(
		&tokenID, &scope, &issuedAt, &expiresAt,
		&clientID, &token.Client.ClientName,
		&userID, &token.User.Email, &token.User.Name,
	)
	if err == sql.ErrNoRows {
		return nil, NewTokenError(CodeInvalidToken, "the access token is unknown")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}

	if token.TokenID, err = uuid.Parse(tokenID); err != nil {
		return nil, fmt.Errorf("corrupt token id %q: %w", tokenID, err)
	}
	if token.Client.ClientID, err = uuid.Parse(clientID); err != nil {
		return nil, fmt.Errorf("corrupt client id %q: %w", clientID, err)
	}
	if token.User.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", userID, err)
	}
	token.Scopes = ParseScopes(scope)
	token.IssuedAt = time.Unix(issuedAt, 0)
	token.ExpiresAt = time.Unix(expiresAt, 0)
	return &token, nil
}

// RequireClient enforces a client allow-list on top of an acquired token.
// Any client not in the list is a terminal ForbiddenAccess.
func RequireClient(token *AccessToken, allowed []string) error {
	for _, id := range allowed {
		if id == token.Client.ClientID.String() {
			return nil
		}
	}
	return NewForbiddenAccess("you cannot access this endpoint")
}
