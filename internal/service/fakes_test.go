package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/user-management/internal/model"
	"github.com/iliyamo/user-management/internal/queue"
	"github.com/iliyamo/user-management/internal/repository"
)

// In-memory stores mirroring the repository semantics, shared by the service
// tests in this package.

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[uint64]model.User
	nextID uint64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[uint64]model.User)}
}

func (f *fakeUsers) Create(_ context.Context, email, passwordHash, firstName, lastName, role string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	f.nextID++
	f.byID[f.nextID] = model.User{
		ID: f.nextID, Email: email, PasswordHash: passwordHash,
		FirstName: firstName, LastName: lastName, Role: role,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	return f.nextID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id uint64, firstName, lastName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FirstName, u.LastName = firstName, lastName
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) UpdateRole(_ context.Context, id uint64, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) List(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

type tokenRow struct {
	userID  uint64
	hash    string
	exp     time.Time
	revoked bool
}

type fakeTokens struct {
	mu   sync.Mutex
	rows []tokenRow
}

func newFakeTokens() *fakeTokens { return &fakeTokens{} }

func (f *fakeTokens) Store(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, tokenRow{userID: userID, hash: tokenHash, exp: exp})
	return nil
}

func (f *fakeTokens) activeLocked(userID uint64) (string, bool) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := f.rows[i]
		if r.userID == userID && !r.revoked && time.Now().UTC().Before(r.exp) {
			return r.hash, true
		}
	}
	return "", false
}

func (f *fakeTokens) FindActive(_ context.Context, userID uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.activeLocked(userID); ok {
		return h, nil
	}
	return "", repository.ErrNotFound
}

func (f *fakeTokens) ResolveOwner(_ context.Context, tokenHash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.hash == tokenHash {
			if r.revoked || time.Now().UTC().After(r.exp) {
				return 0, repository.ErrNotFound
			}
			return r.userID, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (f *fakeTokens) RevokeAll(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].userID == userID {
			f.rows[i].revoked = true
		}
	}
	return nil
}

// Rotate mirrors the transactional semantics of the SQL store: the presented
// hash must still be the active token when the critical section is entered,
// otherwise the rotation loses.
func (f *fakeTokens) Rotate(_ context.Context, userID uint64, presentedHash, newHash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	active, ok := f.activeLocked(userID)
	if !ok || active != presentedHash {
		return repository.ErrNotFound
	}
	for i := range f.rows {
		if f.rows[i].userID == userID {
			f.rows[i].revoked = true
		}
	}
	f.rows = append(f.rows, tokenRow{userID: userID, hash: newHash, exp: exp})
	return nil
}

func (f *fakeTokens) activeCount(userID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r.userID == userID && !r.revoked && time.Now().UTC().Before(r.exp) {
			n++
		}
	}
	return n
}

// discardEvents replaces the broker publisher in tests.
func discardEvents(context.Context, queue.AuthEvent) error { return nil }
