package handlers

import (
	"net/http"

	"coinledger/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authRequired := middleware.Auth(h.cfg.JWTSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authRequired).Get("/me", h.Me)
	})

	router.With(authRequired).Get("/account/balance", h.GetBalance)
	router.With(authRequired).Get("/account/ledger", h.ListLedger)

	router.Route("/usage/events", func(r chi.Router) {
		r.Use(authRequired)
		r.Post("/", h.CreateUsageEvent)
		r.Get("/", h.ListUsageEvents)
		r.Get("/{id}", h.GetUsageEvent)
		r.Post("/{id}/response", h.CompleteUsageEvent)
	})

	router.Post("/webhooks/payment", h.PaymentWebhook)
	router.With(authRequired).Post("/speech", h.Speech)
	router.Get("/ws/balances", h.WSBalances)

	router.Route("/admin", func(r chi.Router) {
		r.Use(authRequired)
		r.Use(middleware.RequireAdmin(h.admin))
		r.Get("/audit", h.ListAuditLogs)
		r.Get("/reconcile", h.Reconcile)
		r.Post("/promote", h.PromoteAdmin)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
