package utils

import (
	"testing"

	"github.com/google/uuid"
)

func testJWTManager() *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:            "test-secret-do-not-use",
		Issuer:            "mycabinet-test",
		AccessExpiryMins:  15,
		RefreshExpiryDays: 7,
	})
}

func TestJWTGenerateAndParsePair(t *testing.T) {
	m := testJWTManager()
	userID := uuid.New()

	pair, err := m.GeneratePair(userID)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if pair.TokenType != "bearer" {
		t.Errorf("token type = %q, want bearer", pair.TokenType)
	}
	if pair.ExpiresIn != 15*60 {
		t.Errorf("expires_in = %d, want %d", pair.ExpiresIn, 15*60)
	}

	got, err := m.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if got != userID {
		t.Errorf("access subject = %s, want %s", got, userID)
	}

	got, err = m.ParseRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if got != userID {
		t.Errorf("refresh subject = %s, want %s", got, userID)
	}
}

func TestJWTTokenTypeMismatch(t *testing.T) {
	m := testJWTManager()
	pair, err := m.GeneratePair(uuid.New())
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	if _, err := m.ParseAccess(pair.RefreshToken); err == nil {
		t.Error("refresh token accepted as access token")
	}
	if _, err := m.ParseRefresh(pair.AccessToken); err == nil {
		t.Error("access token accepted as refresh token")
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	m := testJWTManager()
	pair, err := m.GeneratePair(uuid.New())
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	other := NewJWTManager(JWTConfig{
		Secret:            "a-different-secret",
		Issuer:            "mycabinet-test",
		AccessExpiryMins:  15,
		RefreshExpiryDays: 7,
	})
	if _, err := other.ParseAccess(pair.AccessToken); err == nil {
		t.Error("token signed with another secret was accepted")
	}
}

func TestJWTRejectsGarbage(t *testing.T) {
	m := testJWTManager()
	if _, err := m.ParseAccess("not-a-jwt"); err == nil {
		t.Error("garbage token was accepted")
	}
}
