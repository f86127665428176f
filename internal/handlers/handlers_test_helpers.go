package handlers

import (
	"context"

	"coinledger/internal/config"
	"coinledger/internal/models"
	"coinledger/internal/services"
	"coinledger/internal/speech"
	"coinledger/internal/store"
	"coinledger/internal/websocket"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	getByEmailFn func(ctx context.Context, email string) (models.User, error)
	getByIDFn    func(ctx context.Context, userID string) (models.User, error)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubAccountStore struct {
	getByUserIDFn   func(ctx context.Context, userID string) (models.Account, error)
	summaryByUserFn func(ctx context.Context, userID string) (store.AccountSummary, error)
	listSummariesFn func(ctx context.Context, limit, offset int) ([]store.AccountSummary, error)
}

func (s stubAccountStore) GetByUserID(ctx context.Context, userID string) (models.Account, error) {
	if s.getByUserIDFn == nil {
		return models.Account{}, nil
	}
	return s.getByUserIDFn(ctx, userID)
}

func (s stubAccountStore) SummaryByUser(ctx context.Context, userID string) (store.AccountSummary, error) {
	if s.summaryByUserFn == nil {
		return store.AccountSummary{}, nil
	}
	return s.summaryByUserFn(ctx, userID)
}

func (s stubAccountStore) ListSummaries(ctx context.Context, limit, offset int) ([]store.AccountSummary, error) {
	if s.listSummariesFn == nil {
		return nil, nil
	}
	return s.listSummariesFn(ctx, limit, offset)
}

type stubLedgerStore struct {
	listByAccountFn func(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error)
}

func (s stubLedgerStore) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error) {
	if s.listByAccountFn == nil {
		return nil, nil
	}
	return s.listByAccountFn(ctx, accountID, limit, offset)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubAdminStore struct {
	isAdminFn     func(ctx context.Context, userID string) (bool, bool, error)
	createAdminFn func(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
}

func (s stubAdminStore) IsAdmin(ctx context.Context, userID string) (bool, bool, error) {
	if s.isAdminFn == nil {
		return false, false, nil
	}
	return s.isAdminFn(ctx, userID)
}

func (s stubAdminStore) CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error {
	if s.createAdminFn == nil {
		return nil
	}
	return s.createAdminFn(ctx, tx, userID, isSuper, createdBy)
}

type stubProvisionService struct {
	registerFn func(ctx context.Context, req services.RegisterRequest) (string, error)
}

func (s stubProvisionService) Register(ctx context.Context, req services.RegisterRequest) (string, error) {
	if s.registerFn == nil {
		return "user-1", nil
	}
	return s.registerFn(ctx, req)
}

type stubPaymentService struct {
	handleEventFn func(ctx context.Context, event services.WebhookEvent) (services.PaymentOutcome, error)
}

func (s stubPaymentService) HandleEvent(ctx context.Context, event services.WebhookEvent) (services.PaymentOutcome, error) {
	if s.handleEventFn == nil {
		return services.PaymentOutcome{}, nil
	}
	return s.handleEventFn(ctx, event)
}

type stubUsageService struct {
	createEventFn   func(ctx context.Context, userID, prompt string) (models.UsageEvent, error)
	getEventFn      func(ctx context.Context, userID, eventID string) (models.UsageEvent, error)
	listEventsFn    func(ctx context.Context, userID string, limit, offset int) ([]models.UsageEvent, error)
	completeEventFn func(ctx context.Context, userID, eventID, response string) (models.UsageEvent, error)
}

func (s stubUsageService) CreateEvent(ctx context.Context, userID, prompt string) (models.UsageEvent, error) {
	if s.createEventFn == nil {
		return models.UsageEvent{}, nil
	}
	return s.createEventFn(ctx, userID, prompt)
}

func (s stubUsageService) GetEvent(ctx context.Context, userID, eventID string) (models.UsageEvent, error) {
	if s.getEventFn == nil {
		return models.UsageEvent{}, nil
	}
	return s.getEventFn(ctx, userID, eventID)
}

func (s stubUsageService) ListEvents(ctx context.Context, userID string, limit, offset int) ([]models.UsageEvent, error) {
	if s.listEventsFn == nil {
		return nil, nil
	}
	return s.listEventsFn(ctx, userID, limit, offset)
}

func (s stubUsageService) CompleteEvent(ctx context.Context, userID, eventID, response string) (models.UsageEvent, error) {
	if s.completeEventFn == nil {
		return models.UsageEvent{}, nil
	}
	return s.completeEventFn(ctx, userID, eventID, response)
}

type stubSynthesizer struct {
	synthesizeFn func(ctx context.Context, text string) (speech.Result, error)
}

func (s stubSynthesizer) Synthesize(ctx context.Context, text string) (speech.Result, error) {
	if s.synthesizeFn == nil {
		return speech.Result{Audio: []byte("audio"), ContentType: "audio/mpeg"}, nil
	}
	return s.synthesizeFn(ctx, text)
}

type testHandlerOptions struct {
	users     stubUserStore
	accounts  stubAccountStore
	ledger    stubLedgerStore
	audit     stubAuditStore
	admin     stubAdminStore
	provision stubProvisionService
	payments  stubPaymentService
	usage     stubUsageService
	speech    Synthesizer
	txRunner  fakeTxRunner
}

func newTestHandler(opts testHandlerOptions) *Handler {
	cfg := config.Config{
		JWTSecret:            "test-secret",
		TokenTTLMinutes:      60,
		PaymentWebhookSecret: "webhook-secret",
		WelcomeBonusCoins:    50,
		PaymentCreditCoins:   100,
	}
	return New(cfg, zap.NewNop().Sugar(), opts.txRunner, opts.users, opts.accounts, opts.ledger,
		opts.audit, opts.admin, opts.provision, opts.payments, opts.usage, opts.speech, websocket.NewHub())
}
