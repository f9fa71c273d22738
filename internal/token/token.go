// Package token issues and verifies the signed session tokens that carry
// identity and role between requests. All session state lives in the
// token itself; the server keeps nothing.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ndrozdov/postboard/internal/models"
)

// Verification failure kinds. Callers translate these into HTTP status
// codes at the transport boundary.
var (
	ErrMissing   = errors.New("token missing")
	ErrExpired   = errors.New("token expired")
	ErrMalformed = errors.New("token malformed")
)

// Claims is the decoded payload of a verified session token. Subject is
// the username.
type Claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{secret: secret, ttl: ttl}
}

func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token for subject with the service's configured TTL.
func (s *Service) Issue(subject string, role models.Role) (string, error) {
	return s.IssueWithTTL(subject, role, s.ttl)
}

func (s *Service) IssueWithTTL(subject string, role models.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify checks the signature and expiry of raw and decodes its claims.
// Decoding and verification are a single parse; no claim is returned
// unless the signature holds and the token is current.
func (s *Service) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMissing
	}

	claims := &Claims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signature method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	if !t.Valid || claims.Subject == "" || claims.Role == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	return claims, nil
}
