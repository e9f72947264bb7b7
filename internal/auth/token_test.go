package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	raw, err := tokens.Issue(42, time.Now())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	userID, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if userID != 42 {
		t.Fatalf("got user %d want 42", userID)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issued, err := NewTokens("secret-a", time.Hour).Issue(1, time.Now())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := NewTokens("secret-b", time.Hour).Verify(issued); err == nil {
		t.Fatalf("expected verification to fail with a different secret")
	}
}

func TestTokenExpired(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	raw, err := tokens.Issue(7, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := tokens.Verify(raw); err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
}

func TestTokenGarbage(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	if _, err := tokens.Verify("not-a-token"); err == nil {
		t.Fatalf("expected garbage token to fail verification")
	}
}
