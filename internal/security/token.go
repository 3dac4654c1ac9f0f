package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"canvasquest/internal/ids"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

type Clock func() time.Time

type TokenOption func(*TokenCodec)

// WithClock overrides the wall clock used for iat, exp and validation.
func WithClock(clock Clock) TokenOption {
	return func(c *TokenCodec) {
		c.now = clock
	}
}

// TokenCodec mints and verifies signed session tokens. The secret is fixed
// for the lifetime of the process.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    Clock
}

func NewTokenCodec(secret, issuer string, ttl time.Duration, opts ...TokenOption) *TokenCodec {
	c := &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Mint signs a token for subjectID. The returned expiry is the exact exp
// claim so callers can persist it alongside the token.
func (c *TokenCodec) Mint(subjectID int64) (string, time.Time, error) {
	// NumericDate has second precision; truncate so the ledger matches exp.
	now := c.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(c.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(subjectID, 10),
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        ids.New(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, issuer and expiry and returns the subject id.
func (c *TokenCodec) Verify(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}

	subjectID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || subjectID <= 0 {
		return 0, ErrTokenInvalid
	}
	return subjectID, nil
}
