package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Subject is the verified identity behind a bearer token. It is derived per
// request and never persisted.
type Subject struct {
	Username string
}

// Provider issues and verifies bearer tokens. Credential checking and
// password storage live outside this system; the provider only maps a token
// to a Subject.
type Provider struct {
	secret []byte
	ttl    time.Duration
}

func NewProvider(secret []byte, ttl time.Duration) *Provider {
	return &Provider{secret: secret, ttl: ttl}
}

func (p *Provider) Issue(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Verify resolves a bearer token to its Subject. Failures are one of
// ErrMissingToken, ErrExpiredToken, ErrInvalidToken.
func (p *Provider) Verify(tokenString string) (Subject, error) {
	if tokenString == "" {
		return Subject{}, ErrMissingToken
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Subject{}, ErrExpiredToken
		}
		return Subject{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Subject{}, ErrInvalidToken
	}
	return Subject{Username: claims.Subject}, nil
}
