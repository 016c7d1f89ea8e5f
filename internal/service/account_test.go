package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/model"
)

func newTestAccounts(t *testing.T) (*AccountService, *fakeUsers, *fakeTokens) {
	t.Helper()
	users := newFakeUsers()
	tokens := newFakeTokens()
	a := NewAccountService(users, tokens, 4)
	a.publish = discardEvents
	return a, users, tokens
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	a, users, _ := newTestAccounts(t)
	uid := registerUser(t, users, "alice@example.com", "secret123")

	err := a.ChangePassword(context.Background(), uid, "wrong", "newpass456")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	u, _ := users.GetByID(context.Background(), uid)
	if !auth.VerifyPassword(u.PasswordHash, "secret123") {
		t.Fatal("password must be unchanged after a failed attempt")
	}
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	a, users, tokens := newTestAccounts(t)
	uid := registerUser(t, users, "alice@example.com", "secret123")
	if err := tokens.Store(context.Background(), uid, "h1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	if err := a.ChangePassword(context.Background(), uid, "secret123", "newpass456"); err != nil {
		t.Fatalf("ChangePassword error: %v", err)
	}
	u, _ := users.GetByID(context.Background(), uid)
	if !auth.VerifyPassword(u.PasswordHash, "newpass456") {
		t.Fatal("new password must verify")
	}
	if got := tokens.activeCount(uid); got != 0 {
		t.Fatalf("want all sessions revoked, %d still active", got)
	}
}

func TestUpdateProfile(t *testing.T) {
	a, users, _ := newTestAccounts(t)
	uid := registerUser(t, users, "alice@example.com", "secret123")

	if err := a.UpdateProfile(context.Background(), uid, "Alice", "Doe"); err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	u, _ := users.GetByID(context.Background(), uid)
	if u.FirstName != "Alice" || u.LastName != "Doe" {
		t.Fatalf("profile not updated: %+v", u)
	}
}

func TestSetRoleAndDelete(t *testing.T) {
	a, users, tokens := newTestAccounts(t)
	uid := registerUser(t, users, "alice@example.com", "secret123")
	if err := tokens.Store(context.Background(), uid, "h1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	if err := a.SetRole(context.Background(), uid, model.RoleAdmin); err != nil {
		t.Fatalf("SetRole error: %v", err)
	}
	u, _ := users.GetByID(context.Background(), uid)
	if u.Role != model.RoleAdmin {
		t.Fatalf("want ADMIN role, got %q", u.Role)
	}

	if err := a.DeleteUser(context.Background(), uid); err != nil {
		t.Fatalf("DeleteUser error: %v", err)
	}
	if _, err := users.GetByID(context.Background(), uid); err == nil {
		t.Fatal("user must be gone after delete")
	}
	if got := tokens.activeCount(uid); got != 0 {
		t.Fatalf("want sessions revoked before delete, %d active", got)
	}
}
