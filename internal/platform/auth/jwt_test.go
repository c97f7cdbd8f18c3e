package auth

import (
	"testing"
	"time"

	"adminhub/internal/platform/config"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Minute})

	token, expiresAt, err := svc.GenerateAccessToken("u1", "ana@x.com", "s1")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if expiresAt <= time.Now().Unix() {
		t.Errorf("expected expiry in the future, got %d", expiresAt)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "ana@x.com" || claims.ID != "s1" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Minute})
	other := NewTokenService(config.JWTConfig{Secret: "other-secret", AccessTokenTTL: time.Minute})

	foreign, _, _ := other.GenerateAccessToken("u1", "ana@x.com", "s1")
	if _, err := svc.ValidateToken(foreign); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}

	expired := NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Minute})
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, _ := expired.GenerateAccessToken("u1", "ana@x.com", "s1")
	if _, err := svc.ValidateToken(old); err == nil {
		t.Error("expected expired token to be rejected")
	}

	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Error("expected garbage to be rejected")
	}
}
