package api

import (
	"net/http"
	"strings"

	"shopsim/internal/game"
	"shopsim/internal/sim"

	"github.com/go-chi/chi/v5"
)

// driverFor resolves the running driver of the business in the path and
// checks the caller owns it. It writes the error response itself.
func (s *Server) driverFor(w http.ResponseWriter, r *http.Request) (*sim.Driver, bool) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return nil, false
	}
	if s.deps.Sims == nil {
		writeError(w, http.StatusServiceUnavailable, "simulation runs in the worker")
		return nil, false
	}
	businessID := chi.URLParam(r, "id")
	d, ok := s.deps.Sims.Driver(businessID)
	if !ok {
		if _, err := s.deps.Game.OwnedBusiness(r.Context(), user.UserID, businessID); err != nil {
			writeDomainError(w, err)
			return nil, false
		}
		writeError(w, http.StatusConflict, "simulation not running")
		return nil, false
	}
	if d.Snapshot().Business.OwnerID != user.UserID {
		writeDomainError(w, game.ErrUnauthorized)
		return nil, false
	}
	return d, true
}

func (s *Server) handleActiveOrders(w http.ResponseWriter, r *http.Request) {
	d, ok := s.driverFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": d.Snapshot().Orders})
}

func (s *Server) handleAcceptOrder(w http.ResponseWriter, r *http.Request) {
	d, ok := s.driverFor(w, r)
	if !ok {
		return
	}
	var in struct {
		EmployeeID string `json:"employee_id"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	o, err := d.AcceptOrder(r.Context(), chi.URLParam(r, "order_id"), strings.TrimSpace(in.EmployeeID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleRejectOrder(w http.ResponseWriter, r *http.Request) {
	d, ok := s.driverFor(w, r)
	if !ok {
		return
	}
	o, err := d.RejectOrder(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	d, ok := s.driverFor(w, r)
	if !ok {
		return
	}
	if err := d.CancelOrder(r.Context(), chi.URLParam(r, "order_id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	d, ok := s.driverFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": d.Snapshot().Business.RecruitmentPool})
}

func (s *Server) handleHire(w http.ResponseWriter, r *http.Request) {
	d, ok := s.driverFor(w, r)
	if !ok {
		return
	}
	var in struct {
		CandidateID string `json:"candidate_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := d.HireCandidate(r.Context(), strings.TrimSpace(in.CandidateID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleSpecialize(w http.ResponseWriter, r *http.Request) {
	d, ok := s.driverFor(w, r)
	if !ok {
		return
	}
	var in struct {
		Skill string `json:"skill"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := d.AssignSpecialization(r.Context(), chi.URLParam(r, "employee_id"), strings.TrimSpace(in.Skill))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleBuyInventory(w http.ResponseWriter, r *http.Request) {
	d, ok := s.driverFor(w, r)
	if !ok {
		return
	}
	var in struct {
		ItemID   string `json:"item_id"`
		Quantity int    `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := d.BuyInventory(r.Context(), strings.TrimSpace(in.ItemID), in.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item_id": p.ItemID, "quantity": p.Quantity, "cost": p.Cost})
}

func (s *Server) handleBuyTool(w http.ResponseWriter, r *http.Request) {
	d, ok := s.driverFor(w, r)
	if !ok {
		return
	}
	var in struct {
		ToolID string `json:"tool_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.PurchaseTool(r.Context(), strings.TrimSpace(in.ToolID)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tool_id": in.ToolID})
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	d, ok := s.driverFor(w, r)
	if !ok {
		return
	}
	var in struct {
		Symbol string `json:"symbol"`
		Side   string `json:"side"`
		Shares int64  `json:"shares"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	side := game.TradeSide(strings.ToLower(strings.TrimSpace(in.Side)))
	t, err := d.TradeStock(r.Context(), strings.ToUpper(strings.TrimSpace(in.Symbol)), side, in.Shares)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
