package identity

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims is the claim set the identity provider puts into session
// tokens: subject is the external user id, org_id/org_role describe the
// active organization when one is selected.
type sessionClaims struct {
	OrgID   string `json:"org_id,omitempty"`
	OrgRole string `json:"org_role,omitempty"`
	jwt.RegisteredClaims
}

// TokenParser verifies session JWTs and extracts the Principal.
type TokenParser struct {
	secret []byte
}

// NewTokenParserFromEnv builds a parser keyed by SESSION_JWT_SECRET.
func NewTokenParserFromEnv() (*TokenParser, error) {
	secret := os.Getenv("SESSION_JWT_SECRET")
	if secret == "" {
		return nil, errors.New("SESSION_JWT_SECRET not set")
	}
	return &TokenParser{secret: []byte(secret)}, nil
}

func NewTokenParser(secret []byte) *TokenParser {
	return &TokenParser{secret: secret}
}

// Parse verifies the token and returns the embedded Principal. A missing or
// invalid token yields a zero Principal and an error; callers hand the zero
// Principal down so the services themselves report ErrUnauthenticated.
func (p *TokenParser) Parse(raw string) (Principal, error) {
	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("parse session token: %w", err)
	}
	if !tok.Valid || claims.Subject == "" {
		return Principal{}, errors.New("invalid session token")
	}
	pr := Principal{UserID: claims.Subject, OrgID: claims.OrgID}
	if claims.OrgID != "" {
		pr.OrgRole = ParseRole(claims.OrgRole)
	}
	return pr, nil
}
