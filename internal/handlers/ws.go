package handlers

import (
	"net/http"

	"coinledger/internal/auth"
	"coinledger/internal/websocket"
)

// WSBalances upgrades to a websocket pushing balance updates. Browsers cannot
// set an Authorization header on the upgrade request, so the token rides in a
// query parameter.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
