package handlers

import (
	"encoding/json"
	"net/http"

	"coinledger/internal/middleware"

	"github.com/jmoiron/sqlx"
)

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 50, 500)
	logs, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		h.respondStoreError(w, err, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

// Reconcile lists stored balances next to ledger sums. Any non-zero
// difference means the balance invariant was violated.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 100, 1000)
	summaries, err := h.accounts.ListSummaries(r.Context(), limit, offset)
	if err != nil {
		h.respondStoreError(w, err, "unable to reconcile accounts")
		return
	}
	drift := 0
	for _, summary := range summaries {
		if summary.Difference != 0 {
			drift++
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"accounts":       summaries,
		"drift_accounts": drift,
	})
}

type promoteRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.CreateAdmin(r.Context(), tx, req.UserID, false, &actorID); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"promoted_by": actorID})
		return h.audit.Log(r.Context(), tx, actorID, "promote_admin", "user", req.UserID, string(data))
	})
	if err != nil {
		h.respondStoreError(w, err, "unable to promote user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
