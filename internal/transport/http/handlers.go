package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"chaintable/internal/coordinator"
	"chaintable/internal/game"
	"chaintable/internal/store"

	"github.com/go-chi/chi/v5"
)

// mapGameError translates the domain error taxonomy to HTTP statuses. Rule
// violations are conflicts, authorization failures are forbidden, unknown
// ids are not found.
func mapGameError(err error) (int, string) {
	switch {
	// An expired session is as good as unknown to its clients.
	case errors.Is(err, store.ErrNotFound), errors.Is(err, game.ErrSessionExpired):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, game.ErrNotCreator), errors.Is(err, game.ErrNotParticipant):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, game.ErrSessionClosed),
		errors.Is(err, game.ErrIllegalTransition),
		errors.Is(err, game.ErrRoomUnavailable),
		errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, coordinator.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func AuthHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricAuthTotal.Add(1)
		var req struct {
			Address   string `json:"address"`
			Message   string `json:"message"`
			Signature string `json:"signature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metricAuthErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		tok, err := coord.Authenticate(req.Address, req.Message, req.Signature)
		if err != nil {
			metricAuthErrors.Add(1)
			WriteHTTPError(w, http.StatusUnauthorized, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"token": tok})
	}
}

func SessionsCreateHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricSessionCreateTotal.Add(1)
		addr, _ := AddressFromContext(r.Context())
		var req struct {
			Kind  game.Kind `json:"kind"`
			Stake int64     `json:"stake"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metricSessionCreateErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		view, err := coord.CreateSession(r.Context(), addr, req.Kind, req.Stake)
		if err != nil {
			metricSessionCreateErrors.Add(1)
			status, code := mapGameError(err)
			WriteHTTPError(w, status, code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(view)
	}
}

func SessionStateHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, _ := AddressFromContext(r.Context())
		view, err := coord.ViewSession(addr, chi.URLParam(r, "session_id"))
		if err != nil {
			status, code := mapGameError(err)
			WriteHTTPError(w, status, code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}

func ActionsHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricActionSubmitTotal.Add(1)
		addr, _ := AddressFromContext(r.Context())
		var req struct {
			Action game.ActionType `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metricActionSubmitErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		view, err := coord.Act(r.Context(), addr, chi.URLParam(r, "session_id"), req.Action)
		if err != nil {
			metricActionSubmitErrors.Add(1)
			status, code := mapGameError(err)
			WriteHTTPError(w, status, code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}

func SessionsDeleteHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, _ := AddressFromContext(r.Context())
		if err := coord.CancelSession(r.Context(), addr, chi.URLParam(r, "session_id")); err != nil {
			status, code := mapGameError(err)
			// On the cancel surface a refusal is an authorization answer:
			// post-play and already-terminal sessions may not be cancelled.
			if errors.Is(err, game.ErrIllegalTransition) || errors.Is(err, game.ErrSessionClosed) {
				status = http.StatusForbidden
			}
			WriteHTTPError(w, status, code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func SettlementHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := coord.Settlement(chi.URLParam(r, "session_id"))
		if !ok {
			WriteHTTPError(w, http.StatusNotFound, "settlement_not_found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rec)
	}
}

func PendingSettlementsHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"pending": coord.PendingSettlements()})
	}
}

func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}
