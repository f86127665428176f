package store

import (
	"context"
	"database/sql"
	"errors"

	"coinledger/internal/models"
)

type PaymentEventStore struct {
	db DB
}

type PaymentEventInput struct {
	ID              string
	EventType       string
	SessionID       string
	ClientReference string
	Status          string
	Detail          string
}

func NewPaymentEventStore(db DB) *PaymentEventStore {
	return &PaymentEventStore{db: db}
}

// Insert records a verified webhook delivery. The provider event id is the
// primary key; a redelivery reports inserted=false instead of failing.
func (s *PaymentEventStore) Insert(ctx context.Context, tx Execer, input PaymentEventInput) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO payment_events (id, event_type, session_id, client_reference, status, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, input.ID, input.EventType, input.SessionID, input.ClientReference, input.Status, input.Detail)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *PaymentEventStore) UpdateStatus(ctx context.Context, tx Execer, id, status, detail string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE payment_events
		SET status = $1, detail = $2
		WHERE id = $3
	`, status, detail, id)
	return err
}

func (s *PaymentEventStore) GetByID(ctx context.Context, id string) (models.PaymentEvent, bool, error) {
	var row models.PaymentEvent
	err := s.db.GetContext(ctx, &row, `
		SELECT id, event_type, session_id, client_reference, status, detail, created_at
		FROM payment_events
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PaymentEvent{}, false, nil
		}
		return models.PaymentEvent{}, false, err
	}
	return row, true, nil
}
