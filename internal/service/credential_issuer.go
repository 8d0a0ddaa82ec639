package service

import (
	"time"

	"github.com/sandeepkv93/endorsement-backend/internal/security"
)

// SessionCredential is a stateless bearer token; it is never persisted.
type SessionCredential struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CredentialIssuer interface {
	Issue(accountID string) (*SessionCredential, error)
}

type JWTCredentialIssuer struct {
	jwt *security.JWTManager
	ttl time.Duration
}

func NewJWTCredentialIssuer(jwt *security.JWTManager, ttl time.Duration) *JWTCredentialIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTCredentialIssuer{jwt: jwt, ttl: ttl}
}

func (i *JWTCredentialIssuer) Issue(accountID string) (*SessionCredential, error) {
	token, claims, err := i.jwt.SignSessionToken(accountID, i.ttl)
	if err != nil {
		return nil, err
	}
	return &SessionCredential{
		Token:     token,
		TokenType: "Bearer",
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
