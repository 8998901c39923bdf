package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"shopsim/internal/auth"
	"shopsim/internal/config"
	"shopsim/internal/game"
	"shopsim/internal/sim"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID string
	Email  string
	Token  string
}

// Deps wires the server. Accounts enables the signup and login routes; Sims
// enables every route that talks to a running simulation.
type Deps struct {
	Auth     auth.Verifier
	Accounts *auth.SupabaseClient
	Game     *game.Service
	Sims     *sim.Manager
	Metrics  prometheus.Gatherer
}

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	deps Deps
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, deps Deps) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = prometheus.DefaultGatherer
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		deps: deps,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(300, time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		if s.deps.Accounts != nil {
			r.Post("/auth/signup", s.handleSignup)
			r.Post("/auth/login", s.handleLogin)
			r.Post("/auth/refresh", s.handleRefresh)
		}
		r.Get("/catalog/business-types", s.handleBusinessTypes)
		r.Get("/catalog/tools", s.handleTools)
		r.Get("/stocks", s.handleStocks)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/businesses", s.handleCreateBusiness)
			r.Get("/businesses/mine", s.handleMyBusiness)
			r.Get("/businesses/{id}", s.handleBusinessState)
			r.Delete("/businesses/{id}", s.handleCloseBusiness)
			r.Post("/businesses/{id}/sim/start", s.handleSimStart)
			r.Post("/businesses/{id}/sim/stop", s.handleSimStop)

			r.Get("/businesses/{id}/orders", s.handleActiveOrders)
			r.Post("/businesses/{id}/orders/{order_id}/accept", s.handleAcceptOrder)
			r.Post("/businesses/{id}/orders/{order_id}/reject", s.handleRejectOrder)
			r.Post("/businesses/{id}/orders/{order_id}/cancel", s.handleCancelOrder)

			r.Get("/businesses/{id}/candidates", s.handleCandidates)
			r.Post("/businesses/{id}/employees/hire", s.handleHire)
			r.Post("/businesses/{id}/employees/{employee_id}/specialize", s.handleSpecialize)
			r.Post("/businesses/{id}/inventory/buy", s.handleBuyInventory)
			r.Post("/businesses/{id}/tools/buy", s.handleBuyTool)
			r.Post("/businesses/{id}/stocks/trade", s.handleTrade)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.deps.Auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.deps.Accounts.SignUp(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.deps.Accounts.Login(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}
	session, err := s.deps.Accounts.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleBusinessTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"business_types": s.deps.Game.Registry().BusinessTypes()})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.deps.Game.Registry().Tools()})
}

func (s *Server) handleStocks(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Sims == nil {
		writeError(w, http.StatusServiceUnavailable, "market runs in the worker")
		return
	}
	m := s.deps.Sims.Market()
	writeJSON(w, http.StatusOK, map[string]any{"regime": m.Regime(), "stocks": m.Stocks()})
}
