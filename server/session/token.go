package session

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/solarstories/chatbot/internal/errors"
)

// tokenTTL bounds how long an abandoned session token stays usable.
const tokenTTL = 24 * time.Hour

type tokenClaims struct {
	Session Session `json:"session"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the session state that travels with the
// client between requests.
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec creates a codec using the given signing secret.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// Encode signs the session into a compact token.
func (c *TokenCodec) Encode(s *Session) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Session: *s,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodePersistence, "failed to sign session token")
	}
	return signed, nil
}

// Decode verifies the token and returns the embedded session. A tampered or
// expired token is a validation error.
func (c *TokenCodec) Decode(token string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Validation("unexpected token signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, errors.Validation("invalid session token")
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, errors.Validation("invalid session token")
	}
	return &claims.Session, nil
}
