package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	t.Setenv("CUSTODIA_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	token, err := GenerateToken("user-1", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != RoleAdmin {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
}

func TestGenerateTokenRejectsUnknownRole(t *testing.T) {
	t.Setenv("CUSTODIA_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("user-1", "superuser", time.Hour); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Setenv("CUSTODIA_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	token, err := GenerateToken("user-1", RoleUser, time.Millisecond)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Setenv("CUSTODIA_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestMissingSecretFailsClosed(t *testing.T) {
	t.Setenv("CUSTODIA_AUTH_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("user-1", RoleUser, time.Hour); err == nil {
		t.Fatal("expected error without configured secret")
	}
}

func TestDevSecretRequiresExplicitOptIn(t *testing.T) {
	t.Setenv("CUSTODIA_AUTH_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	EnableInsecureDevSecret()
	token, err := GenerateToken("user-1", RoleStaff, time.Hour)
	if err != nil {
		t.Fatalf("generate with dev secret: %v", err)
	}
	if _, err := ParseAndValidate(token); err != nil {
		t.Fatalf("parse with dev secret: %v", err)
	}
}
