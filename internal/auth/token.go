package auth // package auth provides password hashing, token signing and secure random material

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and validating signed tokens
)

// ErrInvalidToken is the single failure signal for any token that does not
// verify: bad signature, wrong issuer or audience, expired, malformed. The
// reason is deliberately not exposed so callers cannot probe which check
// failed.
var ErrInvalidToken = errors.New("invalid token")

// Claims carried inside an access token. The subject holds the user ID in
// decimal form; email and role ride along so protected handlers do not have
// to hit the database for them.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AccessToken pairs a serialized JWT with its expiry so handlers can return
// both to the client.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// Signer issues and validates HS256 access tokens. The secret, issuer and
// audience are fixed at construction and never change while the process runs.
type Signer struct {
	secret   []byte
	issuer   string
	audience string
}

// NewSigner builds a Signer. Secret length is enforced by config at startup,
// not here.
func NewSigner(secret, issuer, audience string) *Signer {
	return &Signer{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Issue signs an access token for the user with the given TTL. The claims
// include subject, email, role, issuer, audience, issued-at and expiry.
func (s *Signer) Issue(userID uint64, email, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: email,
		Role:  role,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Validate parses a raw token and checks signature, issuer, audience and
// expiry with zero clock-skew tolerance. Every failure collapses into
// ErrInvalidToken.
func (s *Signer) Validate(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			// Reject anything but HMAC; an attacker must not be able to
			// downgrade the algorithm.
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserID extracts the numeric user ID from the subject claim.
func (c *Claims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}
