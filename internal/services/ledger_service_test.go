package services

import (
	"context"
	"errors"
	"testing"

	"coinledger/internal/models"
	"coinledger/internal/store"
)

func TestLedgerServiceApplyCredit(t *testing.T) {
	ctx := context.Background()
	var inserted store.LedgerEntryInput
	var newBalance int64
	accounts := stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (models.Account, error) {
			return models.Account{ID: accountID, UserID: "user-1", Balance: 0}, nil
		},
		updateBalanceFn: func(_ context.Context, _ store.Execer, _ string, balance int64) error {
			newBalance = balance
			return nil
		},
	}
	ledger := stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, entry store.LedgerEntryInput) error {
			inserted = entry
			return nil
		},
	}
	hub := &stubHub{}
	svc := NewLedgerService(fakeTxRunner{}, accounts, ledger, hub)

	result, err := svc.ApplyCredit(ctx, ApplyRequest{
		AccountID:     "acc-1",
		Amount:        50,
		Kind:          models.EntryKindWelcomeBonus,
		CorrelationID: "welcome:user-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BalanceAfter != 50 || result.AlreadyApplied {
		t.Fatalf("unexpected result: %#v", result)
	}
	if inserted.Amount != 50 || inserted.Kind != models.EntryKindWelcomeBonus {
		t.Fatalf("unexpected entry: %#v", inserted)
	}
	if newBalance != 50 {
		t.Fatalf("unexpected balance write: %d", newBalance)
	}
	if len(hub.updates) != 1 || hub.updates[0].Balance != 50 {
		t.Fatalf("unexpected broadcasts: %#v", hub.updates)
	}
}

func TestLedgerServiceApplyCreditDuplicateCorrelation(t *testing.T) {
	ctx := context.Background()
	inserts := 0
	accounts := stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (models.Account, error) {
			return models.Account{ID: accountID, UserID: "user-1", Balance: 100}, nil
		},
		updateBalanceFn: func(_ context.Context, _ store.Execer, _ string, _ int64) error {
			t.Fatal("balance must not change on duplicate")
			return nil
		},
	}
	ledger := stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, _ store.LedgerEntryInput) error {
			inserts++
			return nil
		},
		getByCorrelationFn: func(_ context.Context, _ store.Getter, kind, correlationID string) (models.LedgerEntry, bool, error) {
			return models.LedgerEntry{ID: "entry-1", Amount: 100}, true, nil
		},
	}
	hub := &stubHub{}
	svc := NewLedgerService(fakeTxRunner{}, accounts, ledger, hub)

	result, err := svc.ApplyCredit(ctx, ApplyRequest{
		AccountID:     "acc-1",
		Amount:        100,
		Kind:          models.EntryKindPaymentCredit,
		CorrelationID: "sess-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.AlreadyApplied || result.BalanceAfter != 100 || result.EntryID != "entry-1" {
		t.Fatalf("unexpected result: %#v", result)
	}
	if inserts != 0 {
		t.Fatalf("expected no insert, got %d", inserts)
	}
	if len(hub.updates) != 0 {
		t.Fatalf("duplicate must not broadcast: %#v", hub.updates)
	}
}

func TestLedgerServiceApplyDebitInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	accounts := stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (models.Account, error) {
			return models.Account{ID: accountID, UserID: "user-1", Balance: 0}, nil
		},
		updateBalanceFn: func(_ context.Context, _ store.Execer, _ string, _ int64) error {
			t.Fatal("declined debit must not write a balance")
			return nil
		},
	}
	ledger := stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, _ store.LedgerEntryInput) error {
			t.Fatal("declined debit must not write an entry")
			return nil
		},
	}
	svc := NewLedgerService(fakeTxRunner{}, accounts, ledger, &stubHub{})

	_, err := svc.ApplyDebit(ctx, ApplyRequest{
		AccountID:     "acc-1",
		Amount:        3,
		Kind:          models.EntryKindUsageDebit,
		CorrelationID: "evt-1",
	})
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if insufficient.Required != 3 || insufficient.Balance != 0 {
		t.Fatalf("unexpected decline detail: %#v", insufficient)
	}
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatal("expected sentinel match")
	}
}

func TestLedgerServiceApplyDebit(t *testing.T) {
	ctx := context.Background()
	var inserted store.LedgerEntryInput
	accounts := stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (models.Account, error) {
			return models.Account{ID: accountID, UserID: "user-1", Balance: 50}, nil
		},
	}
	ledger := stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, entry store.LedgerEntryInput) error {
			inserted = entry
			return nil
		},
	}
	svc := NewLedgerService(fakeTxRunner{}, accounts, ledger, &stubHub{})

	result, err := svc.ApplyDebit(ctx, ApplyRequest{
		AccountID:     "acc-1",
		Amount:        1,
		Kind:          models.EntryKindUsageDebit,
		CorrelationID: "evt-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BalanceAfter != 49 {
		t.Fatalf("unexpected balance: %d", result.BalanceAfter)
	}
	if inserted.Amount != -1 {
		t.Fatalf("debit entry must be negative: %#v", inserted)
	}
}

func TestLedgerServiceRejectsBadRequests(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(fakeTxRunner{}, stubAccountStore{}, stubLedgerStore{}, &stubHub{})

	_, err := svc.ApplyCredit(ctx, ApplyRequest{AccountID: "acc-1", Amount: 0, Kind: models.EntryKindPaymentCredit, CorrelationID: "x"})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	_, err = svc.ApplyCredit(ctx, ApplyRequest{AccountID: "acc-1", Amount: 1, Kind: models.EntryKindPaymentCredit})
	if !errors.Is(err, ErrMissingCorrelation) {
		t.Fatalf("expected ErrMissingCorrelation, got %v", err)
	}
}
