package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/storefront/apiserver/types"
)

// Claims is the payload carried by an access token.
type Claims struct {
	UserID string     `json:"userId"`
	Role   types.Role `json:"role"`
	Email  string     `json:"email"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid access token")

// SignAccessToken issues a signed, time-boxed bearer credential for the
// given user claims.
func SignAccessToken(claims Claims, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.Subject = claims.UserID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyAccessToken parses and validates an access token. It fails
// closed: any signature mismatch, expiry, or missing required claim
// yields an error, never a panic.
func VerifyAccessToken(tokenString string, secret []byte) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return Claims{}, errInvalidToken
	}
	if !token.Valid {
		return Claims{}, errInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" || strings.TrimSpace(claims.Email) == "" || claims.Role == "" {
		return Claims{}, errInvalidToken
	}
	return claims, nil
}
