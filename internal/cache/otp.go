// Package cache provides the short-lived key-value store backing the
// password-recovery flow. Entries live only in Redis with a TTL; they are
// never written to durable storage.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no entry exists for the key, either because
// none was ever stored or because its TTL elapsed. The two cases are not
// distinguished.
var ErrNotFound = errors.New("otp entry not found")

// OTPEntry is the value cached per recovery request: the one-time code and
// the account it belongs to.
type OTPEntry struct {
	Code   string `json:"code"`
	UserID uint64 `json:"user_id"`
}

// OTPCache is the time-expiring store consumed by the recovery engine. It is
// injected rather than reached for as ambient state so tests can swap in a
// controllable backend.
type OTPCache interface {
	// Put stores an entry under the normalized email with the given TTL.
	// Repeated requests for the same email overwrite: last request wins.
	Put(ctx context.Context, email string, entry OTPEntry, ttl time.Duration) error
	// Get returns the live entry for the email or ErrNotFound.
	Get(ctx context.Context, email string) (OTPEntry, error)
	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, email string) error
}

// RedisOTPCache stores entries as JSON values with Redis-managed expiry.
type RedisOTPCache struct {
	client *redis.Client
	prefix string
}

// NewRedisOTPCache builds a cache on the given client. The prefix namespaces
// keys; it defaults to "otp".
func NewRedisOTPCache(client *redis.Client, prefix string) *RedisOTPCache {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisOTPCache{client: client, prefix: prefix}
}

func (c *RedisOTPCache) key(email string) string {
	return c.prefix + ":" + strings.ToLower(strings.TrimSpace(email))
}

func (c *RedisOTPCache) Put(ctx context.Context, email string, entry OTPEntry, ttl time.Duration) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(email), b, ttl).Err()
}

func (c *RedisOTPCache) Get(ctx context.Context, email string) (OTPEntry, error) {
	b, err := c.client.Get(ctx, c.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return OTPEntry{}, ErrNotFound
	}
	if err != nil {
		return OTPEntry{}, err
	}
	var entry OTPEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		return OTPEntry{}, err
	}
	return entry, nil
}

func (c *RedisOTPCache) Delete(ctx context.Context, email string) error {
	return c.client.Del(ctx, c.key(email)).Err()
}
