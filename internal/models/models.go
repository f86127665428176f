package models

import "time"

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Account carries the spendable coin balance for one user. The balance is
// mutated only through the ledger service and never goes negative.
type Account struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Ledger entry kinds. One row per economic effect; the pair
// (kind, correlation_id) is unique so a redelivered event cannot apply twice.
const (
	EntryKindWelcomeBonus  = "welcome_bonus"
	EntryKindPaymentCredit = "payment_credit"
	EntryKindUsageDebit    = "usage_debit"
)

// LedgerEntry is an immutable, append-only record. Credits are positive,
// debits negative.
type LedgerEntry struct {
	ID            string    `db:"id" json:"id"`
	AccountID     string    `db:"account_id" json:"account_id"`
	Amount        int64     `db:"amount" json:"amount"`
	Kind          string    `db:"kind" json:"kind"`
	CorrelationID *string   `db:"correlation_id" json:"correlation_id,omitempty"`
	Description   string    `db:"description" json:"description"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// UsageEvent is one billable prompt/response pair. CostApplied is the
// idempotency guard: nil means not yet finalized, true means charged,
// false means declined. It transitions at most once.
type UsageEvent struct {
	ID                 string     `db:"id" json:"id"`
	UserID             string     `db:"user_id" json:"user_id"`
	Prompt             string     `db:"prompt" json:"prompt"`
	Response           *string    `db:"response" json:"response,omitempty"`
	CostApplied        *bool      `db:"cost_applied" json:"cost_applied,omitempty"`
	CoinsCharged       *int64     `db:"coins_charged" json:"coins_charged,omitempty"`
	CoinsRequired      *int64     `db:"coins_required" json:"coins_required,omitempty"`
	ChargeFailedReason *string    `db:"charge_failed_reason" json:"charge_failed_reason,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	ChargedAt          *time.Time `db:"charged_at" json:"charged_at,omitempty"`
}

// Payment event processing outcomes persisted on payment_events rows.
const (
	PaymentEventCredited  = "credited"
	PaymentEventDuplicate = "duplicate"
	PaymentEventSkipped   = "skipped"
	PaymentEventFailed    = "failed"
)

// PaymentEvent records one verified webhook delivery. The provider event id
// is the primary key, so redeliveries collide instead of reprocessing.
type PaymentEvent struct {
	ID              string    `db:"id" json:"id"`
	EventType       string    `db:"event_type" json:"event_type"`
	SessionID       string    `db:"session_id" json:"session_id"`
	ClientReference string    `db:"client_reference" json:"client_reference"`
	Status          string    `db:"status" json:"status"`
	Detail          string    `db:"detail" json:"detail"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
