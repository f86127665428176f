package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"coinledger/internal/db"
	"coinledger/internal/models"
	"coinledger/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	ErrUserExists = errors.New("username or email already exists")
	// ErrCompensationFailed means the identity row exists without an account
	// and the cleanup delete also failed. Manual remediation required.
	ErrCompensationFailed = errors.New("provisioning compensation failed")
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	Delete(ctx context.Context, id string) (int64, error)
}

type AccountCreator interface {
	Create(ctx context.Context, tx store.Execer, id, userID string, balance int64) error
}

type AdminStore interface {
	CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	HasAnyAdmin(ctx context.Context) (bool, error)
}

// ProvisionService creates the identity record and the account + welcome
// credit as two steps. The second step is one atomic unit; if it fails, the
// identity is deleted so no balance-less identity survives, and a failed
// delete is surfaced instead of swallowed.
type ProvisionService struct {
	txRunner     db.TxRunner
	users        UserStore
	accounts     AccountCreator
	ledger       CreditApplier
	admins       AdminStore
	audit        AuditStore
	welcomeCoins int64
	logger       *zap.SugaredLogger
}

func NewProvisionService(txRunner db.TxRunner, users UserStore, accounts AccountCreator, ledger CreditApplier, admins AdminStore, audit AuditStore, welcomeCoins int64, logger *zap.SugaredLogger) *ProvisionService {
	return &ProvisionService{
		txRunner:     txRunner,
		users:        users,
		accounts:     accounts,
		ledger:       ledger,
		admins:       admins,
		audit:        audit,
		welcomeCoins: welcomeCoins,
		logger:       logger,
	}
}

type RegisterRequest struct {
	Username     string
	Email        string
	PasswordHash string
	RemoteAddr   string
	UserAgent    string
}

// Register returns the new user id. The welcome credit uses a correlation id
// derived from the user id, so even a replayed provisioning step cannot grant
// the bonus twice.
func (s *ProvisionService) Register(ctx context.Context, req RegisterRequest) (string, error) {
	userID := uuid.NewString()

	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.users.Create(ctx, tx, userID, req.Username, req.Email, req.PasswordHash)
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("create identity: %w", err)
	}

	accountID := uuid.NewString()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.accounts.Create(ctx, tx, accountID, userID, 0); err != nil {
			return err
		}
		if s.welcomeCoins > 0 {
			if _, err := s.ledger.ApplyCreditTx(ctx, tx, ApplyRequest{
				AccountID:     accountID,
				Amount:        s.welcomeCoins,
				Kind:          models.EntryKindWelcomeBonus,
				CorrelationID: "welcome:" + userID,
				Description:   "Welcome bonus",
			}); err != nil {
				return err
			}
		}
		hasAdmin, err := s.admins.HasAnyAdmin(ctx)
		if err != nil {
			return err
		}
		if !hasAdmin {
			if err := s.admins.CreateAdmin(ctx, tx, userID, true, nil); err != nil {
				return err
			}
		}
		data, _ := json.Marshal(map[string]string{
			"account_id": accountID,
			"ip":         req.RemoteAddr,
			"user_agent": req.UserAgent,
		})
		return s.audit.Log(ctx, tx, userID, "register", "user", userID, string(data))
	})
	if err == nil {
		return userID, nil
	}

	if _, delErr := s.users.Delete(ctx, userID); delErr != nil {
		s.logger.Errorw("provisioning compensation failed, orphaned identity",
			"user_id", userID, "provision_error", err, "delete_error", delErr)
		return "", fmt.Errorf("%w: user %s: provision: %v, delete: %v", ErrCompensationFailed, userID, err, delErr)
	}
	s.logger.Warnw("provisioning failed, identity rolled back", "user_id", userID, "error", err)
	return "", fmt.Errorf("provision account: %w", err)
}
