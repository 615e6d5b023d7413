package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpired   = errors.New("token_expired")
	ErrMalformed = errors.New("token_malformed")
	ErrSignature = errors.New("token_signature_mismatch")
)

// Issuer mints and validates the bearer tokens that bind a verified wallet
// address to a session. The signing secret is fixed at startup.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token_secret_missing")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (i *Issuer) Issue(address string) (string, error) {
	now := i.now()
	c := jwt.RegisteredClaims{
		Subject:   address,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
}

// Validate returns the address a token was issued for. Expiry is reported
// distinctly from cryptographic failure so callers can prompt a re-sign
// instead of treating it as an attack.
func (i *Issuer) Validate(tokenString string) (string, error) {
	var c jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSignature
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrSignature):
			return "", ErrSignature
		default:
			return "", ErrMalformed
		}
	}
	if !parsed.Valid || c.Subject == "" {
		return "", ErrMalformed
	}
	return c.Subject, nil
}
