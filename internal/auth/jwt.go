package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier checks HS256 access tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) VerifyAccessToken(_ context.Context, accessToken string) (User, error) {
	token, err := jwt.Parse(accessToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["token_type"] != "access" {
		return User{}, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return User{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)
	return User{ID: sub, Email: email}, nil
}

// Issue signs an access token for u that expires after ttl.
func (v *JWTVerifier) Issue(u User, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        u.ID,
		"email":      u.Email,
		"token_type": "access",
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}).SignedString(v.secret)
}
