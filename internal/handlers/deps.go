package handlers

import (
	"context"

	"coinledger/internal/models"
	"coinledger/internal/services"
	"coinledger/internal/speech"
	"coinledger/internal/store"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type AccountStore interface {
	GetByUserID(ctx context.Context, userID string) (models.Account, error)
	SummaryByUser(ctx context.Context, userID string) (store.AccountSummary, error)
	ListSummaries(ctx context.Context, limit, offset int) ([]store.AccountSummary, error)
}

type LedgerStore interface {
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

type AdminStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, bool, error)
	CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
}

type ProvisionService interface {
	Register(ctx context.Context, req services.RegisterRequest) (string, error)
}

type PaymentService interface {
	HandleEvent(ctx context.Context, event services.WebhookEvent) (services.PaymentOutcome, error)
}

type UsageService interface {
	CreateEvent(ctx context.Context, userID, prompt string) (models.UsageEvent, error)
	GetEvent(ctx context.Context, userID, eventID string) (models.UsageEvent, error)
	ListEvents(ctx context.Context, userID string, limit, offset int) ([]models.UsageEvent, error)
	CompleteEvent(ctx context.Context, userID, eventID, response string) (models.UsageEvent, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (speech.Result, error)
}
