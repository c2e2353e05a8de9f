package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

// SetCredential rotates a provider API key at runtime. Keys are stored in the
// database and picked up by the worker on the next run claim.
func (a *App) SetCredential(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Credentials.SetToken(r.Context(), provider, req.APIKey); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]string{"provider": provider, "status": "updated"})
}
