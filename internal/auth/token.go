package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const TokenIssuerName = "aero-webrtc-room-relay"

type Claims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies admin session tokens. Revoked token ids are
// remembered until the token would have expired anyway.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewTokenIssuer returns an issuer signing with secret. An empty secret is
// replaced with 32 random bytes, so tokens do not survive a restart.
func NewTokenIssuer(secret string, ttl time.Duration, now func() time.Time) (*TokenIssuer, error) {
	if ttl <= 0 {
		return nil, errors.New("token ttl must be > 0")
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{
		secret:  key,
		ttl:     ttl,
		now:     now,
		revoked: make(map[string]time.Time),
	}, nil
}

func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue returns a signed token for subject.
func (t *TokenIssuer) Issue(subject string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		Issuer:    TokenIssuerName,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (t *TokenIssuer) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingCredentials
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify checks the signature, issuer, expiry and revocation of token.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()

	claims, err := t.parse(token)
	if err != nil {
		return nil, err
	}
	if _, gone := t.revoked[claims.ID]; gone {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	return claims, nil
}

// Revoke invalidates token. Revoking an invalid or expired token is a no-op.
func (t *TokenIssuer) Revoke(token string) {
	claims, err := t.parse(token)
	if err != nil {
		return
	}
	t.mu.Lock()
	t.pruneLocked()
	t.revoked[claims.ID] = claims.ExpiresAt.Time
	t.mu.Unlock()
}

func (t *TokenIssuer) pruneLocked() {
	now := t.now()
	for id, exp := range t.revoked {
		if !now.Before(exp) {
			delete(t.revoked, id)
		}
	}
}
