package auth

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewInMemory())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice", "ALICE@example.com", "s3cret", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated id")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if user.Role != RoleUser {
		t.Fatalf("empty role must default to user, got %s", user.Role)
	}

	got, err := svc.Login(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("login returned wrong user: %s", got.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Alice", "alice@example.com", "s3cret", RoleUser); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, "Impostor", "alice@example.com", "other", RoleUser)
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "s3cret", "root")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoginDoesNotLeakFailureMode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Alice", "alice@example.com", "s3cret", RoleUser); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "nobody@example.com", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
}
