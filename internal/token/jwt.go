// Package token issues and verifies signed, time-limited bearer tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for every verification failure: bad signature,
// unexpected algorithm, expiry passed or missing, missing subject, garbage input.
var ErrInvalid = errors.New("invalid token")

// Issuer signs HS256 JWTs carrying a subject and an absolute expiry.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates an Issuer signing with secret.
func NewIssuer(secret []byte, opts ...Option) *Issuer {
	i := &Issuer{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Grant is an issued token together with its absolute expiry.
type Grant struct {
	Token     string
	ExpiresAt time.Time
}

// Issue returns a token for subject valid for ttl. There is no default
// lifetime: ttl must be positive.
func (i *Issuer) Issue(subject string, ttl time.Duration) (string, error) {
	g, err := i.Grant(subject, ttl)
	if err != nil {
		return "", err
	}
	return g.Token, nil
}

// Grant is Issue that also reports the expiry written into the token.
func (i *Issuer) Grant(subject string, ttl time.Duration) (Grant, error) {
	if ttl <= 0 {
		return Grant{}, fmt.Errorf("token: ttl must be positive, got %s", ttl)
	}
	if subject == "" {
		return Grant{}, fmt.Errorf("token: subject is required")
	}
	now := i.now().UTC()
	exp := jwt.NewNumericDate(now.Add(ttl))
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: exp,
	})
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return Grant{}, fmt.Errorf("token: sign: %w", err)
	}
	return Grant{Token: signed, ExpiresAt: exp.Time}, nil
}

// Verify checks tok and returns its subject.
func (i *Issuer) Verify(tok string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalid
	}
	if claims.Subject == "" {
		return "", ErrInvalid
	}
	return claims.Subject, nil
}
