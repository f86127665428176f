package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"coinledger/internal/db"
	"coinledger/internal/models"
	"coinledger/internal/pricing"
	"coinledger/internal/store"
	"coinledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var (
	ErrEventNotFound = errors.New("usage event not found")
	ErrNotEventOwner = errors.New("usage event does not belong to user")
	ErrNoResponse    = errors.New("usage event has no response")
)

const DeclineReasonInsufficientFunds = "insufficient_funds"

type UsageEventStore interface {
	Create(ctx context.Context, tx store.Execer, id, userID, prompt string) error
	GetByID(ctx context.Context, id string) (models.UsageEvent, error)
	GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.UsageEvent, error)
	SetResponse(ctx context.Context, tx store.Execer, id, response string) (int64, error)
	MarkCharged(ctx context.Context, tx store.Execer, id string, coins int64) error
	MarkDeclined(ctx context.Context, tx store.Execer, id string, required int64, reason string) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.UsageEvent, error)
}

type DebitApplier interface {
	ApplyDebitTx(ctx context.Context, tx *sqlx.Tx, req ApplyRequest) (ApplyResult, error)
}

// UsageService owns the billable prompt/response lifecycle. The completion
// handler may be re-invoked any number of times; cost_applied is the
// idempotency boundary and the debit plus the flag commit in one transaction.
type UsageService struct {
	txRunner db.TxRunner
	events   UsageEventStore
	accounts AccountResolver
	ledger   DebitApplier
	audit    AuditStore
	hub      BalanceHub
	logger   *zap.SugaredLogger
}

func NewUsageService(txRunner db.TxRunner, events UsageEventStore, accounts AccountResolver, ledger DebitApplier, audit AuditStore, hub BalanceHub, logger *zap.SugaredLogger) *UsageService {
	return &UsageService{
		txRunner: txRunner,
		events:   events,
		accounts: accounts,
		ledger:   ledger,
		audit:    audit,
		hub:      hub,
		logger:   logger,
	}
}

func (s *UsageService) CreateEvent(ctx context.Context, userID, prompt string) (models.UsageEvent, error) {
	id := uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.events.Create(ctx, tx, id, userID, prompt)
	})
	if err != nil {
		return models.UsageEvent{}, err
	}
	return s.events.GetByID(ctx, id)
}

func (s *UsageService) GetEvent(ctx context.Context, userID, eventID string) (models.UsageEvent, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UsageEvent{}, ErrEventNotFound
		}
		return models.UsageEvent{}, err
	}
	if event.UserID != userID {
		return models.UsageEvent{}, ErrNotEventOwner
	}
	return event, nil
}

func (s *UsageService) ListEvents(ctx context.Context, userID string, limit, offset int) ([]models.UsageEvent, error) {
	return s.events.ListByUser(ctx, userID, limit, offset)
}

// CompleteEvent records the response (first delivery only) and applies the
// charge. Safe to call repeatedly: once cost_applied holds a terminal value
// the call returns the stored state without touching the balance.
func (s *UsageService) CompleteEvent(ctx context.Context, userID, eventID, response string) (models.UsageEvent, error) {
	account, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UsageEvent{}, ErrAccountNotFound
		}
		return models.UsageEvent{}, fmt.Errorf("resolve account: %w", err)
	}

	var charged bool
	var balanceAfter int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		event, err := s.events.GetForUpdate(ctx, tx, eventID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrEventNotFound
			}
			return err
		}
		if event.UserID != userID {
			return ErrNotEventOwner
		}
		if event.Response == nil && response != "" {
			if _, err := s.events.SetResponse(ctx, tx, eventID, response); err != nil {
				return err
			}
			event.Response = &response
		}
		if event.CostApplied != nil {
			// Terminal already; redelivered trigger, nothing to do.
			return nil
		}
		if event.Response == nil {
			return ErrNoResponse
		}

		cost := pricing.Cost(utf8.RuneCountInString(event.Prompt))
		result, err := s.ledger.ApplyDebitTx(ctx, tx, ApplyRequest{
			AccountID:     account.ID,
			Amount:        cost,
			Kind:          models.EntryKindUsageDebit,
			CorrelationID: eventID,
			Description:   fmt.Sprintf("Usage charge for event %s", eventID),
		})
		var insufficient *InsufficientFundsError
		if errors.As(err, &insufficient) {
			if err := s.events.MarkDeclined(ctx, tx, eventID, insufficient.Required, DeclineReasonInsufficientFunds); err != nil {
				return err
			}
			data, _ := json.Marshal(map[string]any{
				"coins_required": insufficient.Required,
				"balance":        insufficient.Balance,
			})
			return s.audit.Log(ctx, tx, userID, "usage_declined", "usage_event", eventID, string(data))
		}
		if err != nil {
			return err
		}
		if err := s.events.MarkCharged(ctx, tx, eventID, cost); err != nil {
			return err
		}
		charged = !result.AlreadyApplied
		balanceAfter = result.BalanceAfter
		data, _ := json.Marshal(map[string]any{
			"coins_charged": cost,
			"balance_after": result.BalanceAfter,
		})
		return s.audit.Log(ctx, tx, userID, "usage_charged", "usage_event", eventID, string(data))
	})
	if err != nil {
		return models.UsageEvent{}, err
	}
	if charged && s.hub != nil {
		s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
			AccountID: account.ID,
			Balance:   balanceAfter,
			Kind:      models.EntryKindUsageDebit,
		})
	}
	return s.events.GetByID(ctx, eventID)
}
