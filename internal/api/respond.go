package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"shopsim/internal/game"
	"shopsim/internal/sim"
)

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrBusinessNotFound),
		errors.Is(err, game.ErrOrderNotFound),
		errors.Is(err, game.ErrCandidateNotFound),
		errors.Is(err, game.ErrEmployeeNotFound),
		errors.Is(err, game.ErrStockNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrOwnerHasBusiness),
		errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrStaffAtCapacity),
		errors.Is(err, game.ErrToolOwned),
		errors.Is(err, game.ErrAlreadySpecialized):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientStock),
		errors.Is(err, game.ErrInsufficientShares),
		errors.Is(err, game.ErrInvalidQuantity),
		errors.Is(err, game.ErrInvalidSymbol),
		errors.Is(err, game.ErrInvalidSide),
		errors.Is(err, game.ErrInvalidName),
		errors.Is(err, game.ErrUnknownBusinessType),
		errors.Is(err, game.ErrUnknownTool),
		errors.Is(err, game.ErrUnknownItem),
		errors.Is(err, game.ErrSpecializationLocked),
		errors.Is(err, game.ErrToolIncompatible):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sim.ErrDriverStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
