package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/model"
	"github.com/iliyamo/user-management/internal/queue"
)

// AccountService covers profile management and the in-session password
// change, plus the administrative user operations.
type AccountService struct {
	users      UserStore
	tokens     TokenStore
	bcryptCost int
	publish    func(context.Context, queue.AuthEvent) error
}

func NewAccountService(users UserStore, tokens TokenStore, bcryptCost int) *AccountService {
	return &AccountService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		publish:    queue.PublishAuthEvent,
	}
}

// Profile returns the user record for the id.
func (s *AccountService) Profile(ctx context.Context, id uint64) (model.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile replaces the user's name fields.
func (s *AccountService) UpdateProfile(ctx context.Context, id uint64, firstName, lastName string) error {
	return s.users.UpdateProfile(ctx, id, firstName, lastName)
}

// ChangePassword verifies the current password before storing the new hash.
// A wrong current password comes back as ErrUnauthorized. On success every
// refresh token of the user is revoked, forcing a fresh login everywhere.
func (s *AccountService) ChangePassword(ctx context.Context, id uint64, oldPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(u.PasswordHash, oldPassword) {
		return ErrUnauthorized
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, id, hash); err != nil {
		return err
	}
	if err := s.tokens.RevokeAll(ctx, id); err != nil {
		log.Printf("account: revoke sessions for user %d failed: %v", id, err)
	}
	if err := s.publish(ctx, queue.AuthEvent{
		Type:       queue.EventPasswordChanged,
		UserID:     id,
		Email:      u.Email,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("account: publish %s event failed: %v", queue.EventPasswordChanged, err)
	}
	return nil
}

// ListUsers returns all accounts. Admin only; enforced at the route level.
func (s *AccountService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// SetRole changes a user's role.
func (s *AccountService) SetRole(ctx context.Context, id uint64, role string) error {
	return s.users.UpdateRole(ctx, id, role)
}

// DeleteUser removes the account and revokes its sessions first so no live
// refresh token outlives the row it points at.
func (s *AccountService) DeleteUser(ctx context.Context, id uint64) error {
	if err := s.tokens.RevokeAll(ctx, id); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}
