package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/model"
	"github.com/iliyamo/user-management/internal/queue"
	"github.com/iliyamo/user-management/internal/repository"
)

// TokenPair is the result of a successful login, registration or refresh.
type TokenPair struct {
	User    model.User
	Access  auth.AccessToken
	Refresh auth.RefreshToken
}

// SessionService implements the session lifecycle: login, single-use refresh
// rotation and logout. It is stateless between calls; all shared state lives
// in the token store.
type SessionService struct {
	users      UserStore
	tokens     TokenStore
	signer     *auth.Signer
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	publish    func(context.Context, queue.AuthEvent) error
}

func NewSessionService(users UserStore, tokens TokenStore, signer *auth.Signer, accessTTL, refreshTTL time.Duration, bcryptCost int) *SessionService {
	return &SessionService{
		users:      users,
		tokens:     tokens,
		signer:     signer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		bcryptCost: bcryptCost,
		publish:    queue.PublishAuthEvent,
	}
}

// Register creates an account with the default USER role and immediately
// opens a session for it. Duplicate emails surface as
// repository.ErrEmailExists.
func (s *SessionService) Register(ctx context.Context, email, password, firstName, lastName string) (TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return TokenPair{}, err
	}
	id, err := s.users.Create(ctx, email, hash, firstName, lastName, model.RoleUser)
	if err != nil {
		return TokenPair{}, err
	}
	u := model.User{ID: id, Email: email, FirstName: firstName, LastName: lastName, Role: model.RoleUser}

	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return TokenPair{}, err
	}
	// Best effort: a broker outage must not fail registration.
	if err := s.publish(ctx, queue.AuthEvent{
		Type:       queue.EventUserRegistered,
		UserID:     id,
		Email:      email,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("session: publish %s event failed: %v", queue.EventUserRegistered, err)
	}
	return pair, nil
}

// Login verifies credentials and returns a fresh token pair. An unknown
// email and a wrong password both return ErrUnauthorized; the password is
// still verified against an empty hash in the unknown-email case so the two
// paths cost roughly the same.
func (s *SessionService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.VerifyPassword("", password)
			return TokenPair{}, ErrUnauthorized
		}
		return TokenPair{}, err
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return TokenPair{}, ErrUnauthorized
	}
	return s.issuePair(ctx, u)
}

// Refresh exchanges a presented refresh token for a new pair. The presented
// token must be the owner's current active token; the store's Rotate call
// revokes every live token for the owner and persists the replacement in one
// transaction, so a refresh token is single-use and a replayed one always
// fails. All failures collapse into auth.ErrInvalidToken.
func (s *SessionService) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	hash := auth.HashToken(strings.TrimSpace(presented))

	userID, err := s.tokens.ResolveOwner(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, auth.ErrInvalidToken
		}
		return TokenPair{}, err
	}

	// The presented token must match the currently active one exactly; a
	// stale token from before the chain advanced is rejected even though its
	// row still resolves.
	active, err := s.tokens.FindActive(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, auth.ErrInvalidToken
		}
		return TokenPair{}, err
	}
	if active != hash {
		return TokenPair{}, auth.ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, auth.ErrInvalidToken
		}
		return TokenPair{}, err
	}

	access, err := s.signer.Issue(u.ID, u.Email, u.Role, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := auth.NewRefreshToken(s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	// Rotate re-checks the presented hash under a row lock, revokes all live
	// tokens and inserts the new one atomically. Losing a concurrent race
	// surfaces as ErrNotFound here.
	if err := s.tokens.Rotate(ctx, userID, hash, auth.HashToken(refresh.Raw), refresh.Exp); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, auth.ErrInvalidToken
		}
		return TokenPair{}, err
	}
	return TokenPair{User: u, Access: access, Refresh: refresh}, nil
}

// Logout revokes all refresh tokens for the owner. Calling it twice is a
// no-op the second time.
func (s *SessionService) Logout(ctx context.Context, userID uint64) error {
	return s.tokens.RevokeAll(ctx, userID)
}

// issuePair signs an access token and persists a fresh refresh token for the
// user.
func (s *SessionService) issuePair(ctx context.Context, u model.User) (TokenPair, error) {
	access, err := s.signer.Issue(u.ID, u.Email, u.Role, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := auth.NewRefreshToken(s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.Store(ctx, u.ID, auth.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{User: u, Access: access, Refresh: refresh}, nil
}
