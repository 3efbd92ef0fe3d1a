package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/genenetwork/gn-auth/pkg/authdb"
)

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(authdb.OpenTestStore(t))
	user := User{UserID: uuid.New(), Email: "ada@genenetwork.org", Name: "Ada"}

	if _, err := store.UserByID(ctx, user.UserID); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError before creation, got %v", err)
	}

	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	got, err := store.UserByID(ctx, user.UserID)
	if err != nil {
		t.Fatalf("UserByID failed: %v", err)
	}
	if got != user {
		t.Errorf("UserByID = %+v, want %+v", got, user)
	}
}

func TestPasswordLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(authdb.OpenTestStore(t))
	user := User{UserID: uuid.New(), Email: "ada@genenetwork.org", Name: "Ada"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := store.CheckPassword(ctx, user, "anything"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError without credentials, got %v", err)
	}

	if err := store.SetPassword(ctx, user, "correct horse battery"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if err := store.CheckPassword(ctx, user, "correct horse battery"); err != nil {
		t.Errorf("CheckPassword rejected the right password: %v", err)
	}
	if err := store.CheckPassword(ctx, user, "wrong"); err == nil {
		t.Error("CheckPassword accepted a wrong password")
	}

	// Replacing the credential row, not duplicating it.
	if err := store.SetPassword(ctx, user, "new passphrase"); err != nil {
		t.Fatalf("SetPassword (replace) failed: %v", err)
	}
	if err := store.CheckPassword(ctx, user, "correct horse battery"); err == nil {
		t.Error("old password still accepted after replacement")
	}
	if err := store.CheckPassword(ctx, user, "new passphrase"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestAccessTokenExpiredAndScopes(t *testing.T) {
	now := time.Now()
	token := AccessToken{
		Scopes:    []string{"profile", "group"},
		ExpiresAt: now.Add(time.Minute),
	}

	if token.Expired(now) {
		t.Error("token should not be expired before its deadline")
	}
	if !token.Expired(now.Add(time.Minute)) {
		t.Error("token must be expired at its deadline")
	}
	if !token.HasScopes("profile", "group") {
		t.Error("expected granted scopes to satisfy HasScopes")
	}
	if token.HasScopes("profile", "resource") {
		t.Error("HasScopes must require every wanted scope")
	}
}
