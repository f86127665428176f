package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"coinledger/internal/services"
)

const paymentSignatureHeader = "X-Payment-Signature"

// PaymentWebhook receives payment confirmations. The sender redelivers on any
// non-2xx, so 200 is returned only once the outcome is durably recorded; a
// duplicate delivery hits the correlation guard and is a no-op.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unable to read payload")
		return
	}

	signature := r.Header.Get(paymentSignatureHeader)
	if !validPaymentSignature(payload, h.cfg.PaymentWebhookSecret, signature) {
		h.logger.Warnw("payment webhook signature rejected", "remote", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event services.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	outcome, err := h.payments.HandleEvent(r.Context(), event)
	if err != nil {
		// Non-2xx so the sender redelivers; idempotency makes the retry safe.
		h.respondStoreError(w, err, "payment processing failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": outcome.Status,
	})
}

func validPaymentSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
