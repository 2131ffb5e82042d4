package main

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookieName = "admin_token"

// ErrInvalidToken is the single error returned for every validation failure.
// Callers must not learn whether a token was malformed, forged or expired.
var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer mints and verifies the signed admin session token. The server
// keeps no session record: validity is fully determined by signature and
// expiry at verification time. There is no revocation; a compromised token
// stays valid until its natural expiry.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue returns a signed token carrying the admin role claim and an absolute
// expiry ttl from now.
func (t *TokenIssuer) Issue() (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate checks signature and expiry. Any failure is reported uniformly as
// ErrInvalidToken.
func (t *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CredentialVerifier validates login attempts against the single configured
// administrative principal.
type CredentialVerifier struct {
	username     string
	password     string
	passwordHash string
}

func NewCredentialVerifier(cfg *Config) *CredentialVerifier {
	return &CredentialVerifier{
		username:     cfg.AdminUsername,
		password:     cfg.AdminPassword,
		passwordHash: cfg.AdminPasswordHash,
	}
}

// Verify compares the supplied credentials in constant time. Both inputs are
// hashed before comparison so a byte-length mismatch costs the same as any
// other mismatch and every byte is read regardless of where a difference
// occurs. Returns true only if both username and password match.
func (v *CredentialVerifier) Verify(username, password string) bool {
	userOK := constantTimeEquals(username, v.username)

	var passOK bool
	if v.passwordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(v.passwordHash), []byte(password)) == nil
	} else {
		passOK = constantTimeEquals(password, v.password)
	}

	return userOK && passOK
}

func constantTimeEquals(supplied, expected string) bool {
	suppliedSum := sha256.Sum256([]byte(supplied))
	expectedSum := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(suppliedSum[:], expectedSum[:]) == 1
}
