package api

import (
	"net/http"
	"strings"

	"shopsim/internal/game"
	"shopsim/internal/sim"

	"github.com/go-chi/chi/v5"
)

type businessView struct {
	Business  game.BusinessState `json:"business"`
	Orders    []game.Order       `json:"orders,omitempty"`
	Health    game.Health        `json:"health"`
	Valuation game.Valuation     `json:"valuation"`
	Running   bool               `json:"running"`
}

func snapshotView(snap *sim.Snapshot) businessView {
	return businessView{
		Business:  snap.Business,
		Orders:    snap.Orders,
		Health:    snap.Health,
		Valuation: snap.Valuation,
		Running:   true,
	}
}

// storedView describes a business nobody is simulating right now.
func (s *Server) storedView(b *game.BusinessState) businessView {
	view := businessView{Business: *b}
	reg := s.deps.Game.Registry()
	if bt, ok := reg.BusinessType(b.TypeID); ok {
		var quotes map[string]float64
		if s.deps.Sims != nil {
			quotes = s.deps.Sims.Market().Quotes()
		}
		view.Health = game.AssessFinancialHealth(bt, b)
		view.Valuation = game.ValueBusiness(bt, game.OwnedTools(reg, b), b, quotes)
	}
	return view
}

func (s *Server) handleCreateBusiness(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Name            string  `json:"name"`
		TypeID          string  `json:"type_id"`
		StartingCapital float64 `json:"starting_capital"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.deps.Game.CreateBusiness(r.Context(), game.CreateBusinessInput{
		OwnerID:         user.UserID,
		Name:            in.Name,
		TypeID:          strings.TrimSpace(in.TypeID),
		StartingCapital: in.StartingCapital,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	running := false
	if s.deps.Sims != nil {
		if _, err := s.deps.Sims.Start(r.Context(), id); err != nil {
			s.log.Warn("driver start after create failed", "business_id", id, "err", err)
		} else {
			running = true
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "running": running})
}

func (s *Server) handleMyBusiness(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	b, err := s.deps.Game.BusinessForOwner(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.deps.Sims != nil {
		if d, ok := s.deps.Sims.Driver(b.ID); ok {
			writeJSON(w, http.StatusOK, snapshotView(d.Snapshot()))
			return
		}
	}
	writeJSON(w, http.StatusOK, s.storedView(b))
}

func (s *Server) handleBusinessState(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	businessID := chi.URLParam(r, "id")
	if s.deps.Sims != nil {
		if d, ok := s.deps.Sims.Driver(businessID); ok {
			snap := d.Snapshot()
			if snap.Business.OwnerID != user.UserID {
				writeDomainError(w, game.ErrUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, snapshotView(snap))
			return
		}
	}
	b, err := s.deps.Game.OwnedBusiness(r.Context(), user.UserID, businessID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.storedView(b))
}

func (s *Server) handleCloseBusiness(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	businessID := chi.URLParam(r, "id")
	if _, err := s.deps.Game.OwnedBusiness(r.Context(), user.UserID, businessID); err != nil {
		writeDomainError(w, err)
		return
	}
	if s.deps.Sims != nil {
		s.deps.Sims.Stop(businessID)
	}
	if err := s.deps.Game.CloseBusiness(r.Context(), user.UserID, businessID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSimStart(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if s.deps.Sims == nil {
		writeError(w, http.StatusServiceUnavailable, "simulation runs in the worker")
		return
	}
	businessID := chi.URLParam(r, "id")
	if _, err := s.deps.Game.OwnedBusiness(r.Context(), user.UserID, businessID); err != nil {
		writeDomainError(w, err)
		return
	}
	d, err := s.deps.Sims.Start(r.Context(), businessID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotView(d.Snapshot()))
}

func (s *Server) handleSimStop(w http.ResponseWriter, r *http.Request) {
	d, ok := s.driverFor(w, r)
	if !ok {
		return
	}
	s.deps.Sims.Stop(d.ID())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": false})
}
