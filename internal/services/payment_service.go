package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"coinledger/internal/db"
	"coinledger/internal/models"
	"coinledger/internal/store"
	"coinledger/internal/websocket"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// WebhookEvent is the decoded payment-confirmation payload. data.object.id is
// the payment session id and doubles as the credit's correlation id.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
		} `json:"object"`
	} `json:"data"`
}

const EventTypeCheckoutCompleted = "checkout.completed"

type PaymentEventStore interface {
	Insert(ctx context.Context, tx store.Execer, input store.PaymentEventInput) (bool, error)
	UpdateStatus(ctx context.Context, tx store.Execer, id, status, detail string) error
}

type AccountResolver interface {
	GetByUserID(ctx context.Context, userID string) (models.Account, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type CreditApplier interface {
	ApplyCreditTx(ctx context.Context, tx *sqlx.Tx, req ApplyRequest) (ApplyResult, error)
}

// PaymentOutcome describes how a verified delivery was handled. Retryable is
// set only for transient failures; everything else must be acknowledged so
// the sender stops redelivering.
type PaymentOutcome struct {
	Status       string
	Detail       string
	BalanceAfter int64
}

// PaymentService turns verified payment-confirmation events into account
// credits, at most once per payment session. The webhook transport redelivers
// until it sees success, so every path here must either credit exactly once
// or report an already-handled outcome.
type PaymentService struct {
	txRunner    db.TxRunner
	accounts    AccountResolver
	events      PaymentEventStore
	ledger      CreditApplier
	audit       AuditStore
	hub         BalanceHub
	creditCoins int64
	logger      *zap.SugaredLogger
}

func NewPaymentService(txRunner db.TxRunner, accounts AccountResolver, events PaymentEventStore, ledger CreditApplier, audit AuditStore, hub BalanceHub, creditCoins int64, logger *zap.SugaredLogger) *PaymentService {
	return &PaymentService{
		txRunner:    txRunner,
		accounts:    accounts,
		events:      events,
		ledger:      ledger,
		audit:       audit,
		hub:         hub,
		creditCoins: creditCoins,
		logger:      logger,
	}
}

// HandleEvent processes one signature-verified event. A non-nil error means
// the store failed transiently and the caller should answer non-2xx so the
// sender retries; every returned outcome has been durably recorded.
func (s *PaymentService) HandleEvent(ctx context.Context, event WebhookEvent) (PaymentOutcome, error) {
	eventID := event.ID
	if eventID == "" {
		eventID = event.Data.Object.ID
	}
	if eventID == "" {
		return PaymentOutcome{Status: models.PaymentEventSkipped, Detail: "event id missing"}, nil
	}

	sessionID := event.Data.Object.ID
	clientRef := event.Data.Object.ClientReferenceID

	if event.Type != EventTypeCheckoutCompleted {
		return s.record(ctx, event, eventID, models.PaymentEventSkipped, "ignored event type "+event.Type)
	}
	if sessionID == "" {
		// No session id means no correlation key; a redelivery can never fix
		// that, so acknowledge instead of failing.
		s.logger.Warnw("payment event without session id", "event_id", eventID)
		return s.record(ctx, event, eventID, models.PaymentEventSkipped, "session id missing")
	}
	if clientRef == "" {
		s.logger.Warnw("payment event without client reference", "event_id", eventID, "session_id", sessionID)
		return s.record(ctx, event, eventID, models.PaymentEventSkipped, "client reference missing")
	}

	account, err := s.accounts.GetByUserID(ctx, clientRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warnw("payment event for unknown account", "event_id", eventID, "client_reference", clientRef)
			return s.record(ctx, event, eventID, models.PaymentEventFailed, "no account for client reference")
		}
		return PaymentOutcome{}, fmt.Errorf("resolve account: %w", err)
	}

	var outcome PaymentOutcome
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		inserted, err := s.events.Insert(ctx, tx, store.PaymentEventInput{
			ID:              eventID,
			EventType:       event.Type,
			SessionID:       sessionID,
			ClientReference: clientRef,
			Status:          models.PaymentEventCredited,
			Detail:          "",
		})
		if err != nil {
			return err
		}
		result, err := s.ledger.ApplyCreditTx(ctx, tx, ApplyRequest{
			AccountID:     account.ID,
			Amount:        s.creditCoins,
			Kind:          models.EntryKindPaymentCredit,
			CorrelationID: sessionID,
			Description:   "Payment credit for session " + sessionID,
		})
		if err != nil {
			return err
		}
		if result.AlreadyApplied {
			outcome = PaymentOutcome{Status: models.PaymentEventDuplicate, Detail: "credit already applied", BalanceAfter: result.BalanceAfter}
			if !inserted {
				// Redelivery of the very event that credited; its row keeps
				// the credited status.
				return nil
			}
			return s.events.UpdateStatus(ctx, tx, eventID, models.PaymentEventDuplicate, "credit already applied")
		}
		outcome = PaymentOutcome{Status: models.PaymentEventCredited, BalanceAfter: result.BalanceAfter}
		data, _ := json.Marshal(map[string]any{
			"session_id": sessionID,
			"coins":      s.creditCoins,
			"entry_id":   result.EntryID,
		})
		return s.audit.Log(ctx, tx, account.UserID, "payment_credited", "account", account.ID, string(data))
	})
	if err != nil {
		return PaymentOutcome{}, err
	}
	if outcome.Status == models.PaymentEventCredited {
		if s.hub != nil {
			s.hub.BroadcastBalance(account.UserID, websocket.BalanceUpdate{
				AccountID: account.ID,
				Balance:   outcome.BalanceAfter,
				Kind:      models.EntryKindPaymentCredit,
			})
		}
		s.logger.Infow("payment credited", "event_id", eventID, "session_id", sessionID, "coins", s.creditCoins)
	}
	return outcome, nil
}

// record persists a terminal non-credit outcome so the delivery is
// acknowledged durably and never reprocessed.
func (s *PaymentService) record(ctx context.Context, event WebhookEvent, eventID, status, detail string) (PaymentOutcome, error) {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.events.Insert(ctx, tx, store.PaymentEventInput{
			ID:              eventID,
			EventType:       event.Type,
			SessionID:       event.Data.Object.ID,
			ClientReference: event.Data.Object.ClientReferenceID,
			Status:          status,
			Detail:          detail,
		})
		return err
	})
	if err != nil {
		return PaymentOutcome{}, err
	}
	return PaymentOutcome{Status: status, Detail: detail}, nil
}
