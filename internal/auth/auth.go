// Package auth resolves a request's bearer or cookie token into a Principal.
// Tokens are issued elsewhere; this package only verifies them.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joao-fontenele/zakup/internal/domain"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleClub    Role = "club"
	RoleSponsor Role = "sponsor"
	RoleAdmin   Role = "admin"
)

func (r Role) valid() bool {
	switch r {
	case RoleUser, RoleClub, RoleSponsor, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller. Services receive it explicitly.
type Principal struct {
	ID   string
	Role Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsSeller() bool {
	return p.Role == RoleClub || p.Role == RoleSponsor
}

// SellerKind maps a seller role onto the tag stored on products and order lines.
func (p Principal) SellerKind() domain.SellerKind {
	if p.Role == RoleSponsor {
		return domain.SellerSponsor
	}
	return domain.SellerClub
}

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(token string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, errors.Join(ErrInvalidToken, err)
	}

	if c.Subject == "" || !c.Role.valid() {
		return Principal{}, ErrInvalidToken
	}

	return Principal{ID: c.Subject, Role: c.Role}, nil
}

// IssueToken signs a token for p. Used by tests and local tooling.
func IssueToken(secret string, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
