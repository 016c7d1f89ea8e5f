package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo persists refresh tokens (single 'token_hash' column). Tokens are
// only ever revoked, never deleted: historical rows stay behind for audit.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token hash row for the owner.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// FindActive returns the hash of the owner's current active token: the most
// recent row that is neither revoked nor expired. ErrNotFound when the owner
// has no live token.
func (r *TokenRepo) FindActive(ctx context.Context, userID uint64) (string, error) {
	var hash string
	err := r.DB.QueryRowContext(ctx,
		"SELECT token_hash FROM refresh_tokens WHERE user_id=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP() ORDER BY id DESC LIMIT 1",
		userID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return hash, err
}

// ResolveOwner returns the user ID owning the given token hash, provided the
// token is neither revoked nor expired. Revoked, expired and unknown hashes
// all come back as ErrNotFound: the caller learns nothing about why.
func (r *TokenRepo) ResolveOwner(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid {
		return 0, ErrNotFound
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// RevokeAll revokes all of a user's active tokens. Already-revoked rows are
// untouched, which makes the operation idempotent.
func (r *TokenRepo) RevokeAll(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// Rotate atomically replaces the owner's active refresh token. Inside one
// transaction it locks the owner's active row, re-checks that the presented
// hash still is the active token, revokes every live token for the owner and
// inserts the replacement. The row lock serializes concurrent refresh
// attempts for the same owner: the loser re-reads after commit, sees a
// different active hash and gets ErrNotFound. If the context is cancelled
// mid-way the transaction rolls back and no partial rotation is observable.
func (r *TokenRepo) Rotate(ctx context.Context, userID uint64, presentedHash, newHash string, exp time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var activeHash string
	err = tx.QueryRowContext(ctx,
		"SELECT token_hash FROM refresh_tokens WHERE user_id=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP() ORDER BY id DESC LIMIT 1 FOR UPDATE",
		userID).Scan(&activeHash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if activeHash != presentedHash {
		// The chain already advanced; the presented token is stale or replayed.
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, newHash, exp); err != nil {
		return err
	}
	return tx.Commit()
}
