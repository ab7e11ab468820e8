package jwt

import (
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(time.Hour, 24*time.Hour, "chat-relay")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestGenerateAndValidate(t *testing.T) {
	m := newTestManager(t)

	access, refresh, err := m.GenerateTokenPair("u1", "alice", "a.png", false)
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	claims, err := m.ValidateToken(access)
	if err != nil {
		t.Fatalf("ValidateToken(access): %v", err)
	}
	if claims.UserID != "u1" || claims.Nickname != "alice" || claims.Avatar != "a.png" {
		t.Errorf("access claims = %+v", claims)
	}
	if claims.Type != "access" {
		t.Errorf("type = %q, want access", claims.Type)
	}

	refreshClaims, err := m.ValidateToken(refresh)
	if err != nil {
		t.Fatalf("ValidateToken(refresh): %v", err)
	}
	if refreshClaims.Type != "refresh" {
		t.Errorf("type = %q, want refresh", refreshClaims.Type)
	}
}

func TestRefreshKeepsProfileClaims(t *testing.T) {
	m := newTestManager(t)

	_, refresh, err := m.GenerateTokenPair("admin-1", "sakal", "s.png", true)
	if err != nil {
		t.Fatal(err)
	}

	newAccess, newRefresh, err := m.RefreshTokens(refresh)
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}

	claims, err := m.ValidateToken(newAccess)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if !claims.IsAdmin {
		t.Error("refreshed access token dropped the admin flag")
	}
	if claims.Nickname != "sakal" || claims.Avatar != "s.png" {
		t.Errorf("refreshed claims = nickname %q avatar %q, want profile preserved", claims.Nickname, claims.Avatar)
	}

	// Refresh must chain: the reissued refresh token works too.
	again, _, err := m.RefreshTokens(newRefresh)
	if err != nil {
		t.Fatalf("second RefreshTokens: %v", err)
	}
	chained, err := m.ValidateToken(again)
	if err != nil {
		t.Fatal(err)
	}
	if !chained.IsAdmin {
		t.Error("admin flag lost after chained refresh")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	m := newTestManager(t)

	access, _, err := m.GenerateTokenPair("u1", "alice", "", false)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := m.RefreshTokens(access); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken for an access token", err)
	}
}

func TestRevocation(t *testing.T) {
	m := newTestManager(t)

	access, refresh, err := m.GenerateTokenPair("u1", "alice", "", false)
	if err != nil {
		t.Fatal(err)
	}

	m.RevokeUserTokens("u1")

	if _, err := m.ValidateToken(access); err != ErrRevokedToken {
		t.Errorf("access err = %v, want ErrRevokedToken", err)
	}
	if _, _, err := m.RefreshTokens(refresh); err != ErrRevokedToken {
		t.Errorf("refresh err = %v, want ErrRevokedToken", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.ValidateToken("not-a-token"); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
