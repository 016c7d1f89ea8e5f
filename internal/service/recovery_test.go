package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/cache"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	fail bool
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if m.fail {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func newTestRecovery(t *testing.T) (*RecoveryService, *fakeUsers, *fakeTokens, *cache.RedisOTPCache, *fakeMailer, *miniredis.Miniredis) {
	t.Helper()
	users := newFakeUsers()
	tokens := newFakeTokens()
	mr := miniredis.RunT(t)
	otps := cache.NewRedisOTPCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "otp")
	mailer := &fakeMailer{}
	r := NewRecoveryService(users, tokens, otps, mailer, 10*time.Minute, 4)
	r.publish = discardEvents
	return r, users, tokens, otps, mailer, mr
}

func registerUser(t *testing.T, users *fakeUsers, email, password string) uint64 {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	id, err := users.Create(context.Background(), email, hash, "", "", "USER")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	return id
}

func TestRequestResetUnknownEmail(t *testing.T) {
	r, _, _, _, mailer, _ := newTestRecovery(t)

	err := r.RequestReset(context.Background(), "bob@example.com")
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("want ErrNotRegistered, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("no mail must be sent for an unregistered email")
	}
}

func TestRequestResetCachesAndMails(t *testing.T) {
	r, users, _, otps, mailer, _ := newTestRecovery(t)
	uid := registerUser(t, users, "alice@example.com", "secret123")

	if err := r.RequestReset(context.Background(), "Alice@Example.com"); err != nil {
		t.Fatalf("RequestReset error: %v", err)
	}
	entry, err := otps.Get(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("otp entry missing: %v", err)
	}
	if entry.UserID != uid || len(entry.Code) != 6 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "alice@example.com" {
		t.Fatalf("unexpected mail: %+v", mailer.sent)
	}
	if want := fmt.Sprintf("<b>%s</b>", entry.Code); !strings.Contains(mailer.sent[0].body, want) {
		t.Fatalf("mail body %q does not carry the code", mailer.sent[0].body)
	}
}

func TestRequestResetDeliveryFailureRetainsEntry(t *testing.T) {
	r, users, _, otps, mailer, _ := newTestRecovery(t)
	registerUser(t, users, "alice@example.com", "secret123")
	mailer.fail = true

	err := r.RequestReset(context.Background(), "alice@example.com")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("want ErrDeliveryFailed, got %v", err)
	}
	// The cached code survives so a previously delivered one stays usable.
	if _, err := otps.Get(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("entry must be retained on delivery failure: %v", err)
	}
}

func TestConfirmResetWrongCode(t *testing.T) {
	r, users, _, otps, _, _ := newTestRecovery(t)
	registerUser(t, users, "alice@example.com", "secret123")

	if err := r.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestReset error: %v", err)
	}
	err := r.ConfirmReset(context.Background(), "alice@example.com", "000000", "newpass456")
	if !errors.Is(err, ErrInvalidOtp) {
		t.Fatalf("want ErrInvalidOtp, got %v", err)
	}
	// A failed attempt does not consume the entry.
	if _, err := otps.Get(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("entry must survive a failed attempt: %v", err)
	}
}

func TestConfirmResetSingleUse(t *testing.T) {
	r, users, tokens, otps, _, _ := newTestRecovery(t)
	uid := registerUser(t, users, "alice@example.com", "secret123")
	if err := tokens.Store(context.Background(), uid, "some-hash", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	if err := r.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestReset error: %v", err)
	}
	entry, err := otps.Get(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("otp entry missing: %v", err)
	}

	if err := r.ConfirmReset(context.Background(), "alice@example.com", entry.Code, "newpass456"); err != nil {
		t.Fatalf("ConfirmReset error: %v", err)
	}
	u, err := users.GetByID(context.Background(), uid)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if !auth.VerifyPassword(u.PasswordHash, "newpass456") {
		t.Fatal("new password must verify after reset")
	}
	if auth.VerifyPassword(u.PasswordHash, "secret123") {
		t.Fatal("old password must no longer verify")
	}
	// Existing sessions are revoked on reset.
	if got := tokens.activeCount(uid); got != 0 {
		t.Fatalf("want all tokens revoked, %d still active", got)
	}
	// The code is spent: verifying again fails.
	if err := r.ConfirmReset(context.Background(), "alice@example.com", entry.Code, "anotherpass"); !errors.Is(err, ErrInvalidOtp) {
		t.Fatalf("spent code: want ErrInvalidOtp, got %v", err)
	}
}

func TestConfirmResetExpiredCode(t *testing.T) {
	r, users, _, otps, _, mr := newTestRecovery(t)
	registerUser(t, users, "alice@example.com", "secret123")

	if err := r.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestReset error: %v", err)
	}
	entry, err := otps.Get(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("otp entry missing: %v", err)
	}

	mr.FastForward(10*time.Minute + time.Second)

	if err := r.ConfirmReset(context.Background(), "alice@example.com", entry.Code, "newpass456"); !errors.Is(err, ErrInvalidOtp) {
		t.Fatalf("expired code: want ErrInvalidOtp, got %v", err)
	}
}

func TestRepeatedRequestOverwrites(t *testing.T) {
	r, users, _, otps, _, _ := newTestRecovery(t)
	registerUser(t, users, "alice@example.com", "secret123")

	if err := r.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("first RequestReset error: %v", err)
	}
	first, err := otps.Get(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("otp entry missing: %v", err)
	}
	if err := r.RequestReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("second RequestReset error: %v", err)
	}
	second, err := otps.Get(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("otp entry missing: %v", err)
	}
	if first.Code == second.Code {
		t.Skip("codes collided; astronomically unlikely but not a failure")
	}
	// Only the latest code verifies.
	if err := r.ConfirmReset(context.Background(), "alice@example.com", first.Code, "newpass456"); !errors.Is(err, ErrInvalidOtp) {
		t.Fatalf("superseded code: want ErrInvalidOtp, got %v", err)
	}
	if err := r.ConfirmReset(context.Background(), "alice@example.com", second.Code, "newpass456"); err != nil {
		t.Fatalf("latest code must verify: %v", err)
	}
}
