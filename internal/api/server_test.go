package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopsim/internal/auth"
	"shopsim/internal/catalog"
	"shopsim/internal/config"
	"shopsim/internal/game"
	"shopsim/internal/sim"
	"shopsim/internal/store/memstore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	tokens *auth.JWTVerifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	reg := catalog.Default()

	cfg := sim.DefaultConfig()
	cfg.BaseTick = time.Hour
	cfg.Flush = time.Hour
	mgr := sim.NewManager(sim.Deps{Store: store, Registry: reg, Logger: logger}, cfg, 7, "calm")
	t.Cleanup(mgr.Shutdown)

	tokens := auth.NewJWTVerifier("test-secret")
	s := New(config.APIConfig{EmbeddedSim: true}, logger, Deps{
		Auth:    tokens,
		Game:    game.NewService(store, reg, logger, 3),
		Sims:    mgr,
		Metrics: prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &harness{t: t, srv: srv, tokens: tokens}
}

func (h *harness) do(method, path, owner string, body any) (int, map[string]any) {
	h.t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, buf)
	require.NoError(h.t, err)
	if owner != "" {
		token, err := h.tokens.Issue(auth.User{ID: owner}, time.Hour)
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestBusinessLifecycle(t *testing.T) {
	h := newHarness(t)

	code, _ := h.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = h.do(http.MethodPost, "/v1/businesses", "", map[string]any{"name": "Rolling Grill", "type_id": "food_truck"})
	require.Equal(t, http.StatusUnauthorized, code)

	code, created := h.do(http.MethodPost, "/v1/businesses", "alice", map[string]any{"name": "Rolling Grill", "type_id": "food_truck"})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, true, created["running"])
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	code, _ = h.do(http.MethodPost, "/v1/businesses", "alice", map[string]any{"name": "Second Grill", "type_id": "food_truck"})
	require.Equal(t, http.StatusConflict, code)

	code, _ = h.do(http.MethodPost, "/v1/businesses", "bob", map[string]any{"name": "Nope", "type_id": "spaceport"})
	require.Equal(t, http.StatusBadRequest, code)

	code, view := h.do(http.MethodGet, "/v1/businesses/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, view["running"])

	code, _ = h.do(http.MethodGet, "/v1/businesses/"+id, "bob", nil)
	require.Equal(t, http.StatusForbidden, code)

	code, bought := h.do(http.MethodPost, "/v1/businesses/"+id+"/inventory/buy", "alice", map[string]any{"item_id": "patty", "quantity": 10})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 19.0, bought["cost"])

	code, _ = h.do(http.MethodPost, "/v1/businesses/"+id+"/inventory/buy", "alice", map[string]any{"item_id": "patty", "quantity": 0})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(http.MethodPost, "/v1/businesses/"+id+"/orders/missing/accept", "alice", nil)
	require.Equal(t, http.StatusNotFound, code)

	code, trade := h.do(http.MethodPost, "/v1/businesses/"+id+"/stocks/trade", "alice", map[string]any{"symbol": "grocer", "side": "BUY", "shares": 1})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "GROCER", trade["symbol"])

	code, _ = h.do(http.MethodPost, "/v1/businesses/"+id+"/sim/stop", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = h.do(http.MethodGet, "/v1/businesses/"+id+"/orders", "alice", nil)
	require.Equal(t, http.StatusConflict, code)

	code, view = h.do(http.MethodGet, "/v1/businesses/mine", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, false, view["running"])
	business, _ := view["business"].(map[string]any)
	inventory, _ := business["inventory"].(map[string]any)
	require.Equal(t, 70.0, inventory["patty"], "stopping flushed the purchase")

	code, _ = h.do(http.MethodDelete, "/v1/businesses/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = h.do(http.MethodGet, "/v1/businesses/"+id, "alice", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestCatalogIsPublic(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(http.MethodGet, "/v1/catalog/business-types", "", nil)
	require.Equal(t, http.StatusOK, code)
	types, _ := body["business_types"].([]any)
	require.Len(t, types, 4)

	code, body = h.do(http.MethodGet, "/v1/stocks", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "neutral", body["regime"])
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", bearerToken("Bearer abc"))
	require.Equal(t, "abc", bearerToken("bearer  abc "))
	require.Empty(t, bearerToken("Basic abc"))
	require.Empty(t, bearerToken(""))
}

func TestRefreshRoute(t *testing.T) {
	supabase := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["refresh_token"] != "r1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(auth.Session{AccessToken: "a2", RefreshToken: "r2"})
	}))
	defer supabase.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	s := New(config.APIConfig{}, logger, Deps{
		Auth:     auth.NewJWTVerifier("test-secret"),
		Accounts: auth.NewSupabaseClient(supabase.URL, "anon"),
		Game:     game.NewService(store, catalog.Default(), logger, 3),
		Metrics:  prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	h := &harness{t: t, srv: srv}

	code, body := h.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": "r1"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "a2", body["access_token"])

	code, _ = h.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": "stale"})
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = h.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, code)
}
