package auth

import (
	"strings"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	token, hash, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if !strings.HasPrefix(token, TokenPrefix) {
		t.Errorf("token %q missing prefix %q", token, TokenPrefix)
	}
	if hash != HashToken(token) {
		t.Error("returned hash does not match HashToken of the raw token")
	}
	if err := ValidateTokenFormat(token); err != nil {
		t.Errorf("generated token fails format validation: %v", err)
	}

	other, _, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == other {
		t.Error("two generated tokens must differ")
	}
}

func TestValidateTokenFormat(t *testing.T) {
	for _, token := range []string{"", "gna_", "wrongprefix_abc", "gna_!!!not-base64!!!"} {
		if err := ValidateTokenFormat(token); err == nil {
			t.Errorf("ValidateTokenFormat(%q) should fail", token)
		}
	}
}

func TestScopeRoundTrip(t *testing.T) {
	scopes := ParseScopes("profile group resource")
	if len(scopes) != 3 {
		t.Fatalf("expected 3 scopes, got %v", scopes)
	}
	if JoinScopes(scopes) != "profile group resource" {
		t.Errorf("unexpected join result %q", JoinScopes(scopes))
	}
	if got := ParseScopes("   "); len(got) != 0 {
		t.Errorf("blank scope column must parse to no scopes, got %v", got)
	}
}
