package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"coinledger/internal/middleware"
)

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	summary, err := h.accounts.SummaryByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "account not found")
			return
		}
		h.respondStoreError(w, err, "unable to load balance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account_id": summary.ID,
		"balance":    summary.StoredBalance,
		"ledger_sum": summary.LedgerSum,
		"difference": summary.Difference,
		"status":     summary.Status,
	})
}

func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	account, err := h.accounts.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "account not found")
			return
		}
		h.respondStoreError(w, err, "unable to load account")
		return
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	entries, err := h.ledger.ListByAccount(r.Context(), account.ID, limit, offset)
	if err != nil {
		h.respondStoreError(w, err, "unable to load ledger")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account_id": account.ID,
		"entries":    entries,
	})
}
