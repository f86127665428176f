package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"
)

// ErrTxRetryExhausted marks a transaction that kept hitting serialization
// conflicts. Callers may treat it as retryable.
var ErrTxRetryExhausted = errors.New("transaction retry limit exceeded")

type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

type SQLXTxRunner struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) SQLXTxRunner {
	return SQLXTxRunner{db: db}
}

func (r SQLXTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return WithTx(ctx, r.db, fn)
}

func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// WithTx runs fn inside a serializable transaction. Serialization conflicts
// (40001, 40P01) are retried a bounded number of times with exponential
// backoff before being surfaced as ErrTxRetryExhausted.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	backoff := retry.WithMaxRetries(4, retry.WithJitter(10*time.Millisecond, retry.NewExponential(20*time.Millisecond)))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if isRetryablePGError(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			if isRetryablePGError(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil && isRetryablePGError(err) {
		return errors.Join(ErrTxRetryExhausted, err)
	}
	return err
}

func isRetryablePGError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}
