package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/cache"
	"github.com/iliyamo/user-management/internal/email"
	"github.com/iliyamo/user-management/internal/queue"
	"github.com/iliyamo/user-management/internal/repository"
)

// RecoveryService implements the password-recovery exchange: a one-time
// 6-digit code is cached against the requesting email, mailed out, and
// consumed exactly once by a successful reset.
type RecoveryService struct {
	users      UserStore
	tokens     TokenStore
	otps       cache.OTPCache
	mailer     email.Mailer
	otpTTL     time.Duration
	bcryptCost int
	publish    func(context.Context, queue.AuthEvent) error
}

func NewRecoveryService(users UserStore, tokens TokenStore, otps cache.OTPCache, mailer email.Mailer, otpTTL time.Duration, bcryptCost int) *RecoveryService {
	return &RecoveryService{
		users:      users,
		tokens:     tokens,
		otps:       otps,
		mailer:     mailer,
		otpTTL:     otpTTL,
		bcryptCost: bcryptCost,
		publish:    queue.PublishAuthEvent,
	}
}

// RequestReset generates a recovery code for the account behind the email,
// caches it and mails it out. Unknown emails return ErrNotRegistered without
// sending anything; unlike login, this path is allowed to reveal that the
// address has no account. Repeated requests overwrite the cached code: last
// request wins. If delivery fails the cached entry is left in place, so a
// code from an earlier, successfully delivered request stays verifiable.
func (s *RecoveryService) RequestReset(ctx context.Context, emailAddr string) error {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	u, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotRegistered
		}
		return err
	}

	code, err := auth.NewOTP()
	if err != nil {
		return err
	}
	if err := s.otps.Put(ctx, emailAddr, cache.OTPEntry{Code: code, UserID: u.ID}, s.otpTTL); err != nil {
		return err
	}

	body := fmt.Sprintf("Your password reset code is: <b>%s</b>. It will expire in %d minutes.",
		code, int(s.otpTTL.Minutes()))
	if err := s.mailer.Send(ctx, u.Email, "Password Reset Code", body); err != nil {
		log.Printf("recovery: mail to %s failed: %v", u.Email, err)
		return ErrDeliveryFailed
	}
	return nil
}

// ConfirmReset verifies the code against the cached entry for the email and,
// on match, replaces the account password and revokes every refresh token so
// existing sessions cannot outlive the credential they were opened with. The
// entry is removed on success: a code verifies at most once.
func (s *RecoveryService) ConfirmReset(ctx context.Context, emailAddr, code, newPassword string) error {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	entry, err := s.otps.Get(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return ErrInvalidOtp
		}
		return err
	}
	code = strings.TrimSpace(code)
	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
		return ErrInvalidOtp
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, entry.UserID, hash); err != nil {
		return err
	}
	if err := s.otps.Delete(ctx, emailAddr); err != nil {
		log.Printf("recovery: delete otp entry for %s failed: %v", emailAddr, err)
	}
	if err := s.tokens.RevokeAll(ctx, entry.UserID); err != nil {
		log.Printf("recovery: revoke sessions for user %d failed: %v", entry.UserID, err)
	}
	if err := s.publish(ctx, queue.AuthEvent{
		Type:       queue.EventPasswordReset,
		UserID:     entry.UserID,
		Email:      emailAddr,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("recovery: publish %s event failed: %v", queue.EventPasswordReset, err)
	}
	return nil
}
