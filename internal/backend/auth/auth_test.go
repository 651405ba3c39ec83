package auth

import (
	"context"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("test-secret", "user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	userID, err := VerifyToken("test-secret", token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("user id = %q, want %q", userID, "user-1")
	}
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("test-secret", "user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := VerifyToken("other-secret", token); err == nil {
		t.Error("expected verification failure with wrong secret")
	}
}

func TestVerifyTokenGarbage(t *testing.T) {
	if _, err := VerifyToken("test-secret", "not.a.token"); err == nil {
		t.Error("expected verification failure for garbage input")
	}
}

func TestAccessKeyHashing(t *testing.T) {
	hash, err := HashAccessKey("s3cret-key")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyAccessKey(hash, "s3cret-key") {
		t.Error("expected matching key to verify")
	}
	if VerifyAccessKey(hash, "wrong-key") {
		t.Error("expected mismatched key to fail")
	}
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()
	if got := UserID(ctx); got != "" {
		t.Errorf("user id = %q, want empty on bare context", got)
	}
	ctx = WithUserID(ctx, "user-1")
	if got := UserID(ctx); got != "user-1" {
		t.Errorf("user id = %q, want %q", got, "user-1")
	}
}
