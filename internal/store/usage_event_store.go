package store

import (
	"context"

	"coinledger/internal/models"
)

type UsageEventStore struct {
	db DB
}

func NewUsageEventStore(db DB) *UsageEventStore {
	return &UsageEventStore{db: db}
}

func (s *UsageEventStore) Create(ctx context.Context, tx Execer, id, userID, prompt string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO usage_events (id, user_id, prompt)
		VALUES ($1, $2, $3)
	`, id, userID, prompt)
	return err
}

func (s *UsageEventStore) GetByID(ctx context.Context, id string) (models.UsageEvent, error) {
	var row models.UsageEvent
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, prompt, response, cost_applied, coins_charged,
		       coins_required, charge_failed_reason, created_at, charged_at
		FROM usage_events
		WHERE id = $1
	`, id)
	if err != nil {
		return models.UsageEvent{}, err
	}
	return row, nil
}

// GetForUpdate locks the usage event row so that concurrent deliveries of the
// same completion serialize before reading cost_applied.
func (s *UsageEventStore) GetForUpdate(ctx context.Context, tx Getter, id string) (models.UsageEvent, error) {
	var row models.UsageEvent
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, prompt, response, cost_applied, coins_charged,
		       coins_required, charge_failed_reason, created_at, charged_at
		FROM usage_events
		WHERE id = $1
		FOR UPDATE
	`, id)
	if err != nil {
		return models.UsageEvent{}, err
	}
	return row, nil
}

// SetResponse writes the response only on the first delivery; a redelivered
// completion leaves the stored response untouched.
func (s *UsageEventStore) SetResponse(ctx context.Context, tx Execer, id, response string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE usage_events
		SET response = $1
		WHERE id = $2 AND response IS NULL
	`, response, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *UsageEventStore) MarkCharged(ctx context.Context, tx Execer, id string, coins int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE usage_events
		SET cost_applied = TRUE, coins_charged = $1, charged_at = NOW()
		WHERE id = $2 AND cost_applied IS NULL
	`, coins, id)
	return err
}

func (s *UsageEventStore) MarkDeclined(ctx context.Context, tx Execer, id string, required int64, reason string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE usage_events
		SET cost_applied = FALSE, coins_required = $1, charge_failed_reason = $2, charged_at = NOW()
		WHERE id = $3 AND cost_applied IS NULL
	`, required, reason, id)
	return err
}

func (s *UsageEventStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.UsageEvent, error) {
	var rows []models.UsageEvent
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, prompt, response, cost_applied, coins_charged,
		       coins_required, charge_failed_reason, created_at, charged_at
		FROM usage_events
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
