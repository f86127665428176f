package services

import (
	"context"

	"coinledger/internal/models"
	"coinledger/internal/store"
	"coinledger/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubAccountStore struct {
	getForUpdateFn  func(ctx context.Context, tx store.Getter, accountID string) (models.Account, error)
	updateBalanceFn func(ctx context.Context, tx store.Execer, accountID string, balance int64) error
	getByUserIDFn   func(ctx context.Context, userID string) (models.Account, error)
	createFn        func(ctx context.Context, tx store.Execer, id, userID string, balance int64) error
}

func (s stubAccountStore) GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (models.Account, error) {
	return s.getForUpdateFn(ctx, tx, accountID)
}

func (s stubAccountStore) UpdateBalance(ctx context.Context, tx store.Execer, accountID string, balance int64) error {
	if s.updateBalanceFn == nil {
		return nil
	}
	return s.updateBalanceFn(ctx, tx, accountID, balance)
}

func (s stubAccountStore) GetByUserID(ctx context.Context, userID string) (models.Account, error) {
	return s.getByUserIDFn(ctx, userID)
}

func (s stubAccountStore) Create(ctx context.Context, tx store.Execer, id, userID string, balance int64) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, userID, balance)
}

type stubLedgerStore struct {
	insertFn           func(ctx context.Context, tx store.Execer, entry store.LedgerEntryInput) error
	getByCorrelationFn func(ctx context.Context, tx store.Getter, kind, correlationID string) (models.LedgerEntry, bool, error)
}

func (s stubLedgerStore) Insert(ctx context.Context, tx store.Execer, entry store.LedgerEntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, entry)
}

func (s stubLedgerStore) GetByCorrelation(ctx context.Context, tx store.Getter, kind, correlationID string) (models.LedgerEntry, bool, error) {
	if s.getByCorrelationFn == nil {
		return models.LedgerEntry{}, false, nil
	}
	return s.getByCorrelationFn(ctx, tx, kind, correlationID)
}

type stubHub struct {
	updates []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(userID string, update websocket.BalanceUpdate) {
	s.updates = append(s.updates, update)
}

type stubPaymentEventStore struct {
	insertFn       func(ctx context.Context, tx store.Execer, input store.PaymentEventInput) (bool, error)
	updateStatusFn func(ctx context.Context, tx store.Execer, id, status, detail string) error
}

func (s stubPaymentEventStore) Insert(ctx context.Context, tx store.Execer, input store.PaymentEventInput) (bool, error) {
	if s.insertFn == nil {
		return true, nil
	}
	return s.insertFn(ctx, tx, input)
}

func (s stubPaymentEventStore) UpdateStatus(ctx context.Context, tx store.Execer, id, status, detail string) error {
	if s.updateStatusFn == nil {
		return nil
	}
	return s.updateStatusFn(ctx, tx, id, status, detail)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubUsageEventStore struct {
	createFn       func(ctx context.Context, tx store.Execer, id, userID, prompt string) error
	getByIDFn      func(ctx context.Context, id string) (models.UsageEvent, error)
	getForUpdateFn func(ctx context.Context, tx store.Getter, id string) (models.UsageEvent, error)
	setResponseFn  func(ctx context.Context, tx store.Execer, id, response string) (int64, error)
	markChargedFn  func(ctx context.Context, tx store.Execer, id string, coins int64) error
	markDeclinedFn func(ctx context.Context, tx store.Execer, id string, required int64, reason string) error
	listByUserFn   func(ctx context.Context, userID string, limit, offset int) ([]models.UsageEvent, error)
}

func (s stubUsageEventStore) Create(ctx context.Context, tx store.Execer, id, userID, prompt string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, userID, prompt)
}

func (s stubUsageEventStore) GetByID(ctx context.Context, id string) (models.UsageEvent, error) {
	return s.getByIDFn(ctx, id)
}

func (s stubUsageEventStore) GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.UsageEvent, error) {
	return s.getForUpdateFn(ctx, tx, id)
}

func (s stubUsageEventStore) SetResponse(ctx context.Context, tx store.Execer, id, response string) (int64, error) {
	if s.setResponseFn == nil {
		return 1, nil
	}
	return s.setResponseFn(ctx, tx, id, response)
}

func (s stubUsageEventStore) MarkCharged(ctx context.Context, tx store.Execer, id string, coins int64) error {
	if s.markChargedFn == nil {
		return nil
	}
	return s.markChargedFn(ctx, tx, id, coins)
}

func (s stubUsageEventStore) MarkDeclined(ctx context.Context, tx store.Execer, id string, required int64, reason string) error {
	if s.markDeclinedFn == nil {
		return nil
	}
	return s.markDeclinedFn(ctx, tx, id, required, reason)
}

func (s stubUsageEventStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.UsageEvent, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

type stubUserStore struct {
	createFn func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	deleteFn func(ctx context.Context, id string) (int64, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) Delete(ctx context.Context, id string) (int64, error) {
	if s.deleteFn == nil {
		return 1, nil
	}
	return s.deleteFn(ctx, id)
}

type stubAdminStore struct {
	createAdminFn func(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	hasAnyAdminFn func(ctx context.Context) (bool, error)
}

func (s stubAdminStore) CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error {
	if s.createAdminFn == nil {
		return nil
	}
	return s.createAdminFn(ctx, tx, userID, isSuper, createdBy)
}

func (s stubAdminStore) HasAnyAdmin(ctx context.Context) (bool, error) {
	if s.hasAnyAdminFn == nil {
		return true, nil
	}
	return s.hasAnyAdminFn(ctx)
}
