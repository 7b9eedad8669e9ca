package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity resolves a bearer credential to a user id. The real identity
// service lives elsewhere; this side only verifies what it signed.
type Identity interface {
	Resolve(token string) (uint, error)
}

type IdentityClaims struct {
	UserID uint `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

type JWTIdentity struct {
	secret []byte
}

func NewJWTIdentity(secret string) *JWTIdentity {
	return &JWTIdentity{secret: []byte(secret)}
}

func (v *JWTIdentity) Resolve(tk string) (uint, error) {
	tk = strings.TrimSpace(strings.TrimPrefix(tk, "Bearer "))
	if len(tk) == 0 {
		return 0, newError(ErrUnauthorized, "missing credential")
	}

	var claims IdentityClaims
	token, err := jwt.ParseWithClaims(tk, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, newError(ErrUnauthorized, "invalid credential")
	}

	if claims.UserID > 0 {
		return claims.UserID, nil
	}
	if id, err := strconv.ParseUint(claims.Subject, 10, 64); err == nil && id > 0 {
		return uint(id), nil
	}
	return 0, newError(ErrUnauthorized, "credential carries no user")
}

// Issue signs a credential for the user. Used by tooling and tests.
func (v *JWTIdentity) Issue(userId uint, ttl time.Duration) (string, error) {
	claims := IdentityClaims{
		UserID: userId,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userId), 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
