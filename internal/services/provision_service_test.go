package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"coinledger/internal/models"
	"coinledger/internal/store"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

func TestProvisionServiceRegisterGrantsWelcomeBonus(t *testing.T) {
	ctx := context.Background()
	var createdUserID string
	var accountBalance int64 = -1
	var entry store.LedgerEntryInput
	var bootstrappedAdmin bool
	users := stubUserStore{
		createFn: func(_ context.Context, _ store.Execer, id, username, email, _ string) error {
			createdUserID = id
			return nil
		},
	}
	accounts := stubAccountStore{
		createFn: func(_ context.Context, _ store.Execer, _, _ string, balance int64) error {
			accountBalance = balance
			return nil
		},
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (models.Account, error) {
			return models.Account{ID: accountID, UserID: createdUserID, Balance: 0}, nil
		},
	}
	ledgerStore := stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, input store.LedgerEntryInput) error {
			entry = input
			return nil
		},
	}
	admins := stubAdminStore{
		hasAnyAdminFn: func(_ context.Context) (bool, error) { return false, nil },
		createAdminFn: func(_ context.Context, _ store.Execer, _ string, isSuper bool, _ *string) error {
			bootstrappedAdmin = isSuper
			return nil
		},
	}
	ledger := NewLedgerService(fakeTxRunner{}, accounts, ledgerStore, nil)
	svc := NewProvisionService(fakeTxRunner{}, users, accounts, ledger, admins, stubAuditStore{}, 50, zap.NewNop().Sugar())

	userID, err := svc.Register(ctx, RegisterRequest{Username: "name", Email: "email@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != createdUserID {
		t.Fatalf("returned id %q does not match created id %q", userID, createdUserID)
	}
	if accountBalance != 0 {
		t.Fatalf("account must start at zero, got %d", accountBalance)
	}
	if entry.Amount != 50 || entry.Kind != models.EntryKindWelcomeBonus {
		t.Fatalf("unexpected welcome entry: %#v", entry)
	}
	if entry.CorrelationID != "welcome:"+userID {
		t.Fatalf("unexpected correlation: %q", entry.CorrelationID)
	}
	if !bootstrappedAdmin {
		t.Fatal("first registered user must become super admin")
	}
}

func TestProvisionServiceRegisterDuplicateUser(t *testing.T) {
	ctx := context.Background()
	users := stubUserStore{
		createFn: func(_ context.Context, _ store.Execer, _, _, _, _ string) error {
			return &pq.Error{Code: "23505"}
		},
	}
	ledger := NewLedgerService(fakeTxRunner{}, stubAccountStore{}, stubLedgerStore{}, nil)
	svc := NewProvisionService(fakeTxRunner{}, users, stubAccountStore{}, ledger, stubAdminStore{}, stubAuditStore{}, 50, zap.NewNop().Sugar())

	_, err := svc.Register(ctx, RegisterRequest{Username: "name", Email: "email@example.com", PasswordHash: "hash"})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestProvisionServiceCompensatesFailedAccountStep(t *testing.T) {
	ctx := context.Background()
	var deletedUserID string
	users := stubUserStore{
		deleteFn: func(_ context.Context, id string) (int64, error) {
			deletedUserID = id
			return 1, nil
		},
	}
	accounts := stubAccountStore{
		createFn: func(_ context.Context, _ store.Execer, _, _ string, _ int64) error {
			return errors.New("accounts table unavailable")
		},
	}
	ledger := NewLedgerService(fakeTxRunner{}, accounts, stubLedgerStore{}, nil)
	svc := NewProvisionService(fakeTxRunner{}, users, accounts, ledger, stubAdminStore{}, stubAuditStore{}, 50, zap.NewNop().Sugar())

	_, err := svc.Register(ctx, RegisterRequest{Username: "name", Email: "email@example.com", PasswordHash: "hash"})
	if err == nil {
		t.Fatal("expected provisioning error")
	}
	if errors.Is(err, ErrCompensationFailed) {
		t.Fatal("successful compensation must not report ErrCompensationFailed")
	}
	if deletedUserID == "" {
		t.Fatal("identity must be deleted when the account step fails")
	}
}

func TestProvisionServiceSurfacesFailedCompensation(t *testing.T) {
	ctx := context.Background()
	users := stubUserStore{
		deleteFn: func(_ context.Context, _ string) (int64, error) {
			return 0, errors.New("connection lost")
		},
	}
	accounts := stubAccountStore{
		createFn: func(_ context.Context, _ store.Execer, _, _ string, _ int64) error {
			return errors.New("accounts table unavailable")
		},
	}
	ledger := NewLedgerService(fakeTxRunner{}, accounts, stubLedgerStore{}, nil)
	svc := NewProvisionService(fakeTxRunner{}, users, accounts, ledger, stubAdminStore{}, stubAuditStore{}, 50, zap.NewNop().Sugar())

	_, err := svc.Register(ctx, RegisterRequest{Username: "name", Email: "email@example.com", PasswordHash: "hash"})
	if !errors.Is(err, ErrCompensationFailed) {
		t.Fatalf("expected ErrCompensationFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection lost") {
		t.Fatalf("compensation error must carry the delete failure: %v", err)
	}
}

func TestProvisionServiceSkipsWelcomeBonusWhenZero(t *testing.T) {
	ctx := context.Background()
	accounts := stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, _ string) (models.Account, error) {
			t.Fatal("zero welcome bonus must not reach the ledger")
			return models.Account{}, nil
		},
	}
	ledger := NewLedgerService(fakeTxRunner{}, accounts, stubLedgerStore{}, nil)
	svc := NewProvisionService(fakeTxRunner{}, stubUserStore{}, accounts, ledger, stubAdminStore{}, stubAuditStore{}, 0, zap.NewNop().Sugar())

	if _, err := svc.Register(ctx, RegisterRequest{Username: "name", Email: "email@example.com", PasswordHash: "hash"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
