package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*RedisOTPCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisOTPCache(client, "otp"), mr
}

func TestPutGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	entry := OTPEntry{Code: "123456", UserID: 7}
	if err := c.Put(ctx, "Alice@Example.com", entry, 10*time.Minute); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	// Lookup is case-insensitive because the key is normalized.
	got, err := c.Get(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != entry {
		t.Fatalf("want %+v, got %+v", entry, got)
	}
}

func TestGetMissing(t *testing.T) {
	c, _ := newTestCache(t)
	if _, err := c.Get(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestEntryExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.Put(ctx, "a@b.c", OTPEntry{Code: "000000", UserID: 1}, 10*time.Minute); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	mr.FastForward(10*time.Minute + time.Second)
	if _, err := c.Get(ctx, "a@b.c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after TTL, got %v", err)
	}
}

func TestOverwriteLastRequestWins(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Put(ctx, "a@b.c", OTPEntry{Code: "111111", UserID: 1}, time.Minute); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := c.Put(ctx, "a@b.c", OTPEntry{Code: "222222", UserID: 1}, time.Minute); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, err := c.Get(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Code != "222222" {
		t.Fatalf("want latest code, got %q", got.Code)
	}
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Put(ctx, "a@b.c", OTPEntry{Code: "123456", UserID: 1}, time.Minute); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := c.Delete(ctx, "a@b.c"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := c.Get(ctx, "a@b.c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
	// Deleting again is not an error.
	if err := c.Delete(ctx, "a@b.c"); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
}
