// Package auth turns bearer tokens into owner identities.
package auth

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid token")

// User is the identity behind a verified token. ID is the owner id every
// business is keyed by.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Verifier interface {
	VerifyAccessToken(ctx context.Context, accessToken string) (User, error)
}

// Chain accepts a token if any verifier does, trying them in order.
type Chain []Verifier

func (c Chain) VerifyAccessToken(ctx context.Context, accessToken string) (User, error) {
	err := ErrInvalidToken
	for _, v := range c {
		u, verr := v.VerifyAccessToken(ctx, accessToken)
		if verr == nil {
			return u, nil
		}
		err = verr
	}
	return User{}, err
}
