package auth

import (
	"crypto/rand"    // secure random number generation
	"crypto/sha256"  // SHA-256 hashing for refresh tokens at rest
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// RefreshToken represents a long-lived opaque credential used to obtain new
// access tokens. The Raw field is the value returned to the client; only its
// SHA-256 digest is ever persisted.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// NewRefreshToken returns a cryptographically secure random token (32 bytes,
// base64-encoded) and its expiration time.
func NewRefreshToken(ttl time.Duration) (RefreshToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: base64.StdEncoding.EncodeToString(buf),
		Exp: time.Now().UTC().Add(ttl),
	}, nil
}

// HashToken returns the SHA-256 hex digest of a raw refresh token. Storing
// only the digest keeps a stolen database dump from being usable to refresh
// sessions.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// otpMax is the largest multiple of 10^6 representable in a uint32. Draws at
// or above it are rejected so the modulo reduction below stays unbiased.
const otpMax = 4294000000

// NewOTP returns a 6-digit recovery code drawn from crypto/rand using
// rejection sampling.
func NewOTP() (string, error) {
	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return "", err
		}
		v := binary.BigEndian.Uint32(buf[:])
		if v >= otpMax {
			continue
		}
		return fmt.Sprintf("%06d", v%1000000), nil
	}
}
