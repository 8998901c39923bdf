package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientSendsTokenAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/businesses/b%201/inventory/buy", r.URL.EscapedPath())
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "patty", in["item_id"])
		require.EqualValues(t, 5, in["quantity"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cost":19}`))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL+"/").BuyInventory(context.Background(), "tok", "b 1", "patty", 5)
	require.NoError(t, err)
	require.EqualValues(t, 19, out["cost"])
}

func TestClientAcceptWithoutEmployeeSendsNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Content-Type"))
		require.EqualValues(t, 0, r.ContentLength)
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL).AcceptOrder(context.Background(), "tok", "b1", "o1", "")
	require.NoError(t, err)
	require.Equal(t, "accepted", out["status"])
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"simulation not running"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).StopSim(context.Background(), "tok", "b1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Equal(t, "simulation not running", apiErr.Message)
}

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("ECON_HOME", t.TempDir())

	_, err := LoadSession()
	require.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, SaveSession(Session{AccessToken: "tok", UserID: "u1", BusinessID: "b1"}))
	s, err := LoadSession()
	require.NoError(t, err)
	require.Equal(t, "b1", s.BusinessID)

	s, err = UpdateSession(func(s *Session) { s.BusinessID = "" })
	require.NoError(t, err)
	require.Empty(t, s.BusinessID)
	require.Equal(t, "tok", s.AccessToken)

	require.NoError(t, ClearSession())
	require.NoError(t, ClearSession())
	_, err = LoadSession()
	require.ErrorIs(t, err, ErrNoSession)
}
