package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is a credential held by the identity provider for an account.
type Identity struct {
	AccountID    string    `db:"account_id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// IdentityHandle is returned by the identity provider after sign-up.
type IdentityHandle struct {
	AccountID string
	Email     string
}

// Session is an issued access token.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	AccountID string   `json:"account_id"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasAnyRole reports whether the claims carry at least one of roles.
func (c *JWTClaims) HasAnyRole(roles ...Role) bool {
	if c == nil {
		return false
	}
	for _, have := range c.Roles {
		for _, want := range roles {
			if Role(have) == want {
				return true
			}
		}
	}
	return false
}
