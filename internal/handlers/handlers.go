package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"coinledger/internal/config"
	"coinledger/internal/db"
	"coinledger/internal/websocket"

	"go.uber.org/zap"
)

type Handler struct {
	cfg       config.Config
	logger    *zap.SugaredLogger
	txRunner  db.TxRunner
	users     UserStore
	accounts  AccountStore
	ledger    LedgerStore
	audit     AuditStore
	admin     AdminStore
	provision ProvisionService
	payments  PaymentService
	usage     UsageService
	speech    Synthesizer
	hub       *websocket.Hub
}

func New(cfg config.Config, logger *zap.SugaredLogger, txRunner db.TxRunner, users UserStore, accounts AccountStore, ledger LedgerStore, audit AuditStore, admin AdminStore, provision ProvisionService, payments PaymentService, usage UsageService, synthesizer Synthesizer, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:       cfg,
		logger:    logger,
		txRunner:  txRunner,
		users:     users,
		accounts:  accounts,
		ledger:    ledger,
		audit:     audit,
		admin:     admin,
		provision: provision,
		payments:  payments,
		usage:     usage,
		speech:    synthesizer,
		hub:       hub,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError hides internals but keeps the retryable/permanent split:
// a transaction that ran out of retries is worth the client trying again.
func (h *Handler) respondStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, db.ErrTxRetryExhausted) {
		respondError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry")
		return
	}
	h.logger.Errorw(message, "error", err)
	respondError(w, http.StatusInternalServerError, message)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
