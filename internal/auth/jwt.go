// Package auth issues and verifies actor tokens. Callers of the protection
// core identify themselves with a short-lived HS256 token carrying the
// actor id and actor type; role resolution stays with the access policy.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/finwise/dataguard/internal/common"
)

// Claims extend the registered claims with the acting principal.
type Claims struct {
	jwt.RegisteredClaims
	ActorID   string `json:"actor_id"`
	ActorType string `json:"actor_type"`
}

// GenerateToken mints a signed actor token.
func GenerateToken(actorID, actorType string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		ActorID:   actorID,
		ActorType: actorType,
	})
	return token.SignedString(secretKey)
}

// ParseToken verifies a token and returns the actor id and type.
func ParseToken(tokenString string, secretKey []byte) (actorID, actorType string, err error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", common.ErrInvalidToken
		}
		return "", "", err
	}
	if !token.Valid || claims.ActorID == "" {
		return "", "", common.ErrInvalidToken
	}
	return claims.ActorID, claims.ActorType, nil
}
