package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coinledger/internal/db"
	"coinledger/internal/models"
	"coinledger/internal/store"
	"coinledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrMissingCorrelation = errors.New("correlation id is required")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
)

// InsufficientFundsError reports a declined debit. It is a defined outcome,
// not a failure: no mutation happened and the caller decides how to record
// the decline.
type InsufficientFundsError struct {
	Required int64
	Balance  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %d, have %d", e.Required, e.Balance)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

type AccountStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (models.Account, error)
	UpdateBalance(ctx context.Context, tx store.Execer, accountID string, balance int64) error
}

type LedgerStore interface {
	Insert(ctx context.Context, tx store.Execer, entry store.LedgerEntryInput) error
	GetByCorrelation(ctx context.Context, tx store.Getter, kind, correlationID string) (models.LedgerEntry, bool, error)
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

// LedgerService owns every balance mutation. Each apply is one atomic unit:
// lock the account row, check the correlation id, append one entry, write the
// new balance. A correlation id that already produced an entry short-circuits
// into the prior outcome, which is what makes redelivery harmless.
type LedgerService struct {
	txRunner db.TxRunner
	accounts AccountStore
	ledger   LedgerStore
	hub      BalanceHub
}

func NewLedgerService(txRunner db.TxRunner, accounts AccountStore, ledger LedgerStore, hub BalanceHub) *LedgerService {
	return &LedgerService{
		txRunner: txRunner,
		accounts: accounts,
		ledger:   ledger,
		hub:      hub,
	}
}

type ApplyRequest struct {
	AccountID     string
	Amount        int64
	Kind          string
	CorrelationID string
	Description   string
}

type ApplyResult struct {
	EntryID        string
	AccountID      string
	AccountUserID  string
	BalanceAfter   int64
	AmountApplied  int64
	AlreadyApplied bool
}

func (s *LedgerService) ApplyCredit(ctx context.Context, req ApplyRequest) (ApplyResult, error) {
	var result ApplyResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		result, err = s.ApplyCreditTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return ApplyResult{}, err
	}
	s.notify(result, req.Kind)
	return result, nil
}

func (s *LedgerService) ApplyDebit(ctx context.Context, req ApplyRequest) (ApplyResult, error) {
	var result ApplyResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		result, err = s.ApplyDebitTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return ApplyResult{}, err
	}
	s.notify(result, req.Kind)
	return result, nil
}

// ApplyCreditTx runs the credit inside a caller-owned transaction so it can
// commit together with other writes (usage flag, account creation).
func (s *LedgerService) ApplyCreditTx(ctx context.Context, tx *sqlx.Tx, req ApplyRequest) (ApplyResult, error) {
	account, prior, found, err := s.lockAndCheck(ctx, tx, req)
	if err != nil {
		return ApplyResult{}, err
	}
	if found {
		return priorResult(account, prior), nil
	}
	return s.append(ctx, tx, account, req, account.Balance+req.Amount, req.Amount)
}

// ApplyDebitTx is the debit counterpart. It refuses to take the balance below
// zero and returns InsufficientFundsError without writing anything.
func (s *LedgerService) ApplyDebitTx(ctx context.Context, tx *sqlx.Tx, req ApplyRequest) (ApplyResult, error) {
	account, prior, found, err := s.lockAndCheck(ctx, tx, req)
	if err != nil {
		return ApplyResult{}, err
	}
	if found {
		return priorResult(account, prior), nil
	}
	if account.Balance < req.Amount {
		return ApplyResult{}, &InsufficientFundsError{Required: req.Amount, Balance: account.Balance}
	}
	return s.append(ctx, tx, account, req, account.Balance-req.Amount, -req.Amount)
}

// lockAndCheck takes the per-account lock, then looks for an entry already
// written for this logical event. Locking first means concurrent duplicate
// deliveries serialize and the loser sees the winner's entry.
func (s *LedgerService) lockAndCheck(ctx context.Context, tx *sqlx.Tx, req ApplyRequest) (models.Account, models.LedgerEntry, bool, error) {
	if req.Amount <= 0 {
		return models.Account{}, models.LedgerEntry{}, false, ErrInvalidAmount
	}
	if req.CorrelationID == "" {
		return models.Account{}, models.LedgerEntry{}, false, ErrMissingCorrelation
	}
	account, err := s.accounts.GetForUpdate(ctx, tx, req.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, models.LedgerEntry{}, false, ErrAccountNotFound
		}
		return models.Account{}, models.LedgerEntry{}, false, err
	}
	prior, found, err := s.ledger.GetByCorrelation(ctx, tx, req.Kind, req.CorrelationID)
	if err != nil {
		return models.Account{}, models.LedgerEntry{}, false, err
	}
	return account, prior, found, nil
}

func (s *LedgerService) append(ctx context.Context, tx *sqlx.Tx, account models.Account, req ApplyRequest, newBalance, signedAmount int64) (ApplyResult, error) {
	entryID := uuid.NewString()
	if err := s.ledger.Insert(ctx, tx, store.LedgerEntryInput{
		ID:            entryID,
		AccountID:     account.ID,
		Amount:        signedAmount,
		Kind:          req.Kind,
		CorrelationID: req.CorrelationID,
		Description:   req.Description,
	}); err != nil {
		return ApplyResult{}, err
	}
	if err := s.accounts.UpdateBalance(ctx, tx, account.ID, newBalance); err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{
		EntryID:       entryID,
		AccountID:     account.ID,
		AccountUserID: account.UserID,
		BalanceAfter:  newBalance,
		AmountApplied: signedAmount,
	}, nil
}

func priorResult(account models.Account, prior models.LedgerEntry) ApplyResult {
	return ApplyResult{
		EntryID:        prior.ID,
		AccountID:      account.ID,
		AccountUserID:  account.UserID,
		BalanceAfter:   account.Balance,
		AmountApplied:  prior.Amount,
		AlreadyApplied: true,
	}
}

// notify pushes the fresh balance to the owner's websocket clients. Delivery
// is best effort and happens only after the atomic unit committed.
func (s *LedgerService) notify(result ApplyResult, kind string) {
	if s.hub == nil || result.AlreadyApplied {
		return
	}
	s.hub.BroadcastBalance(result.AccountUserID, websocket.BalanceUpdate{
		AccountID: result.AccountID,
		Balance:   result.BalanceAfter,
		Kind:      kind,
	})
}
