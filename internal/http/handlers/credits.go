package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"colorizer/internal/credits"
)

// GetCredits returns the balance of the user in the path.
func (a *App) GetCredits(w http.ResponseWriter, r *http.Request) {
	balance, err := a.Credits.Balance(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to read credits")
		a.error(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "credits": balance})
}

type topUpRequest struct {
	Amount int `json:"amount"`
}

// TopUpCredits adds credits to the user in the path.
func (a *App) TopUpCredits(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || req.Amount <= 0 {
		a.error(w, http.StatusBadRequest, text(r, msgInvalidAmount), nil)
		return
	}
	userID := chi.URLParam(r, "userId")
	balance, err := a.Credits.Credit(r.Context(), userID, req.Amount)
	if err != nil {
		if errors.Is(err, credits.ErrInvalidAmount) {
			a.error(w, http.StatusBadRequest, text(r, msgInvalidAmount), nil)
			return
		}
		a.Logger.Error().Err(err).Msg("failed to add credits")
		a.error(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	a.Logger.Info().Str("user_id", userID).Int("amount", req.Amount).Int("balance", balance).Msg("credits topped up")
	a.json(w, http.StatusOK, map[string]any{"success": true, "credits": balance, "message": text(r, msgTopUp)})
}
