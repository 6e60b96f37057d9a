// FilePath: internal/token/token.go
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/greenmind-iot/hub/internal/config"
)

// Verification outcomes. Expired is distinct from invalid so callers can
// tell a device to request a fresh token instead of re-pairing; a bad
// subject claim is distinct from a bad signature.
var (
	ErrExpired        = errors.New("token expired")
	ErrInvalid        = errors.New("invalid token")
	ErrInvalidSubject = errors.New("invalid token subject")
)

// Service issues and verifies signed identity tokens. Tokens carry only
// {sub, exp, iat}; expiry is the sole invalidation mechanism, there is
// no revocation list.
type Service struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewService builds a Service from the auth configuration. Only
// HMAC-family algorithms are accepted.
func NewService(cfg config.AuthConfig) (*Service, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", cfg.Algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %q is not an HMAC method", cfg.Algorithm)
	}
	return &Service{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}, nil
}

// DefaultTTL returns the configured token lifetime.
func (s *Service) DefaultTTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the given subject with the given lifetime.
func (s *Service) Issue(subject string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(s.method, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates the signature and expiry and returns the subject.
func (s *Service) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalid
	}
	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", ErrInvalidSubject
	}
	return subject, nil
}
