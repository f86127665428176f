package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"coinledger/internal/middleware"
	"coinledger/internal/services"

	"github.com/go-chi/chi/v5"
)

type createUsageEventRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) CreateUsageEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createUsageEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	event, err := h.usage.CreateEvent(r.Context(), userID, req.Prompt)
	if err != nil {
		h.respondStoreError(w, err, "unable to create usage event")
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

func (h *Handler) GetUsageEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	event, err := h.usage.GetEvent(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondUsageError(w, err, "unable to load usage event")
		return
	}
	respondJSON(w, http.StatusOK, event)
}

func (h *Handler) ListUsageEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	events, err := h.usage.ListEvents(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondStoreError(w, err, "unable to list usage events")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

type completeUsageEventRequest struct {
	Response string `json:"response"`
}

// CompleteUsageEvent records the response and applies the usage charge. The
// endpoint is idempotent: redelivering the same completion returns the stored
// terminal state without a second debit.
func (h *Handler) CompleteUsageEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req completeUsageEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Response == "" {
		respondError(w, http.StatusBadRequest, "response must not be empty")
		return
	}
	event, err := h.usage.CompleteEvent(r.Context(), userID, chi.URLParam(r, "id"), req.Response)
	if err != nil {
		h.respondUsageError(w, err, "unable to complete usage event")
		return
	}
	respondJSON(w, http.StatusOK, event)
}

func (h *Handler) respondUsageError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, services.ErrEventNotFound):
		respondError(w, http.StatusNotFound, "usage event not found")
	case errors.Is(err, services.ErrNotEventOwner):
		respondError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, services.ErrNoResponse):
		respondError(w, http.StatusBadRequest, "usage event has no response")
	case errors.Is(err, services.ErrAccountNotFound):
		respondError(w, http.StatusNotFound, "account not found")
	default:
		h.respondStoreError(w, err, message)
	}
}
