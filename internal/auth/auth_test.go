package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	v := NewJWTVerifier("s3cret")
	token, err := v.Issue(User{ID: "owner-1", Email: "a@b.c"}, time.Hour)
	require.NoError(t, err)

	u, err := v.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, User{ID: "owner-1", Email: "a@b.c"}, u)

	_, err = NewJWTVerifier("other").VerifyAccessToken(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Issue(User{ID: "owner-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.VerifyAccessToken(context.Background(), expired)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsRefreshTokens(t *testing.T) {
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        "owner-1",
		"token_type": "refresh",
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = NewJWTVerifier("s3cret").VerifyAccessToken(context.Background(), refresh)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSupabaseVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/user", r.URL.Path)
		require.Equal(t, "anon", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"bad jwt"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(User{ID: "sb-1", Email: "x@y.z"})
	}))
	defer srv.Close()

	c := NewSupabaseClient(srv.URL+"/", "anon")
	u, err := c.VerifyAccessToken(context.Background(), "good")
	require.NoError(t, err)
	require.Equal(t, "sb-1", u.ID)

	_, err = c.VerifyAccessToken(context.Background(), "bad")
	require.ErrorIs(t, err, ErrInvalidToken)

	chain := Chain{NewJWTVerifier("s3cret"), c}
	u, err = chain.VerifyAccessToken(context.Background(), "good")
	require.NoError(t, err)
	require.Equal(t, "sb-1", u.ID)
}

func TestSupabaseRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/token", r.URL.Path)
		require.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in["refresh_token"] != "r1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"msg":"invalid refresh token"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(Session{AccessToken: "a2", RefreshToken: "r2", User: User{ID: "sb-1"}})
	}))
	defer srv.Close()

	c := NewSupabaseClient(srv.URL, "anon")
	s, err := c.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "a2", s.AccessToken)
	require.Equal(t, "r2", s.RefreshToken)

	_, err = c.Refresh(context.Background(), "stale")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadRequest, statusErr.Code)
}
