// Package service contains the credential and session lifecycle engines. The
// services orchestrate the hasher, signer, token store and OTP cache; all
// persistence goes through the narrow interfaces below so tests can run
// against in-memory fakes.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/user-management/internal/model"
)

// UserStore is the identity persistence collaborator. Implementations report
// missing records with repository.ErrNotFound rather than driver errors, and
// updates are durable before the call returns.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, firstName, lastName, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateProfile(ctx context.Context, id uint64, firstName, lastName string) error
	UpdatePasswordHash(ctx context.Context, id uint64, hash string) error
	UpdateRole(ctx context.Context, id uint64, role string) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context) ([]model.User, error)
}

// TokenStore persists refresh-token state. Rotate must behave as a per-owner
// critical section: of two concurrent rotations presenting the same hash at
// most one succeeds, and a cancelled rotation leaves no partial state.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	FindActive(ctx context.Context, userID uint64) (string, error)
	ResolveOwner(ctx context.Context, tokenHash string) (uint64, error)
	RevokeAll(ctx context.Context, userID uint64) error
	Rotate(ctx context.Context, userID uint64, presentedHash, newHash string, exp time.Time) error
}
