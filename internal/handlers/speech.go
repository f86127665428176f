package handlers

import (
	"encoding/json"
	"net/http"

	"coinledger/internal/middleware"
	"coinledger/internal/validator"
)

type speechRequest struct {
	Text string `json:"text"`
}

// Speech proxies text-to-speech for authenticated users. No coin charge
// applies here; the gate is authentication only.
func (h *Handler) Speech(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateText(req.Text); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.speech == nil {
		respondError(w, http.StatusServiceUnavailable, "speech synthesis unavailable")
		return
	}
	result, err := h.speech.Synthesize(r.Context(), req.Text)
	if err != nil {
		h.logger.Errorw("speech synthesis failed", "error", err)
		respondError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}
	w.Header().Set("Content-Type", result.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Audio)
}
