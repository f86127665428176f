package store

import (
	"context"
	"database/sql"
	"errors"

	"coinledger/internal/models"
)

type LedgerStore struct {
	db DB
}

type LedgerEntryInput struct {
	ID            string
	AccountID     string
	Amount        int64
	Kind          string
	CorrelationID string
	Description   string
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Insert(ctx context.Context, tx Execer, entry LedgerEntryInput) error {
	var correlation *string
	if entry.CorrelationID != "" {
		correlation = &entry.CorrelationID
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, account_id, amount, kind, correlation_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.AccountID, entry.Amount, entry.Kind, correlation, entry.Description)
	return err
}

// GetByCorrelation returns the entry previously written for a logical event,
// or (found=false) when the correlation id has not been consumed yet.
func (s *LedgerStore) GetByCorrelation(ctx context.Context, tx Getter, kind, correlationID string) (models.LedgerEntry, bool, error) {
	var row models.LedgerEntry
	err := tx.GetContext(ctx, &row, `
		SELECT id, account_id, amount, kind, correlation_id, description, created_at
		FROM ledger_entries
		WHERE kind = $1 AND correlation_id = $2
	`, kind, correlationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.LedgerEntry{}, false, nil
		}
		return models.LedgerEntry{}, false, err
	}
	return row, true, nil
}

func (s *LedgerStore) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error) {
	var rows []models.LedgerEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, account_id, amount, kind, correlation_id, description, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *LedgerStore) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1
	`, accountID)
	return sum, err
}
