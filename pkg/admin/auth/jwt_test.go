package auth

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager("0123456789abcdef", "redemption-platform", "redemption-admin", time.Hour)
	if err != nil {
		t.Fatalf("manager init failed: %v", err)
	}
	return m
}

func TestIssueAndValidateToken(t *testing.T) {
	m := newTestManager(t)

	token, expiresAt, err := m.IssueToken("admin@systechdigital.in")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("expiry must be in the future")
	}

	claims, err := m.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.Email != "admin@systechdigital.in" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	m := newTestManager(t)

	token, _, err := m.IssueToken("admin@systechdigital.in")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := m.ValidateToken(context.Background(), tampered); err == nil {
		t.Fatal("tampered payload accepted")
	}

	other, _ := NewJWTManager("another-secret-value", "redemption-platform", "redemption-admin", time.Hour)
	foreign, _, _ := other.IssueToken("admin@systechdigital.in")
	if _, err := m.ValidateToken(context.Background(), foreign); err == nil {
		t.Fatal("token signed with a different secret accepted")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := newTestManager(t)
	m.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := m.IssueToken("admin@systechdigital.in")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	m.nowFunc = time.Now
	if _, err := m.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestValidateRejectsWrongAudience(t *testing.T) {
	m := newTestManager(t)
	other, _ := NewJWTManager("0123456789abcdef", "redemption-platform", "some-other-api", time.Hour)

	token, _, err := other.IssueToken("admin@systechdigital.in")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := m.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("token for a different audience accepted")
	}
}

func TestWeakSecretRejected(t *testing.T) {
	if _, err := NewJWTManager("short", "iss", "aud", time.Hour); err == nil {
		t.Fatal("expected an error for a short secret")
	}
}

func TestCredentialChecker(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	checker, err := NewCredentialChecker("Admin@SystechDigital.in", hash)
	if err != nil {
		t.Fatalf("checker init failed: %v", err)
	}

	if err := checker.Verify("admin@systechdigital.in", "s3cret-password"); err != nil {
		t.Fatalf("valid credentials rejected: %v", err)
	}
	if err := checker.Verify("admin@systechdigital.in", "wrong"); err != ErrBadCredentials {
		t.Fatalf("wrong password accepted: %v", err)
	}
	if err := checker.Verify("other@example.com", "s3cret-password"); err != ErrBadCredentials {
		t.Fatalf("unknown email accepted: %v", err)
	}
}
