package store

import (
	"context"

	"coinledger/internal/models"
)

type AccountStore struct {
	db DB
}

// AccountSummary pairs the stored balance with the ledger-derived balance so
// callers can observe drift. Difference must always be zero.
type AccountSummary struct {
	ID            string `db:"id"`
	UserID        string `db:"user_id"`
	StoredBalance int64  `db:"stored_balance"`
	LedgerSum     int64  `db:"ledger_sum"`
	Difference    int64  `db:"difference"`
	Status        string `db:"status"`
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, id, userID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, balance, status)
		VALUES ($1, $2, $3, 'active')
	`, id, userID, balance)
	return err
}

func (s *AccountStore) GetByID(ctx context.Context, accountID string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, balance, status, created_at
		FROM accounts
		WHERE id = $1
	`, accountID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetByUserID(ctx context.Context, userID string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, balance, status, created_at
		FROM accounts
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

// GetForUpdate locks the account row for the remainder of the transaction.
// Every balance mutation goes through this lock, so operations on the same
// account serialize while different accounts proceed in parallel.
func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID string) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, balance, status, created_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) UpdateBalance(ctx context.Context, tx Execer, accountID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, balance, accountID)
	return err
}

func (s *AccountStore) SummaryByUser(ctx context.Context, userID string) (AccountSummary, error) {
	var row AccountSummary
	err := s.db.GetContext(ctx, &row, `
		SELECT a.id,
		       a.user_id,
		       a.balance AS stored_balance,
		       COALESCE(SUM(l.amount), 0) AS ledger_sum,
		       (a.balance - COALESCE(SUM(l.amount), 0)) AS difference,
		       a.status
		FROM accounts a
		LEFT JOIN ledger_entries l ON l.account_id = a.id
		WHERE a.user_id = $1
		GROUP BY a.id, a.user_id, a.balance, a.status
	`, userID)
	if err != nil {
		return AccountSummary{}, err
	}
	return row, nil
}

func (s *AccountStore) ListSummaries(ctx context.Context, limit, offset int) ([]AccountSummary, error) {
	var rows []AccountSummary
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id,
		       a.user_id,
		       a.balance AS stored_balance,
		       COALESCE(SUM(l.amount), 0) AS ledger_sum,
		       (a.balance - COALESCE(SUM(l.amount), 0)) AS difference,
		       a.status
		FROM accounts a
		LEFT JOIN ledger_entries l ON l.account_id = a.id
		GROUP BY a.id, a.user_id, a.balance, a.status
		ORDER BY a.created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
