package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/josh-kwaku/capital-pool/internal/app"
	"github.com/josh-kwaku/capital-pool/internal/handler"
	"github.com/josh-kwaku/capital-pool/internal/middleware"
)

func newRouter(a *app.App, jwtSecret string) http.Handler {
	health := handler.NewHealthHandler(a.DB)
	wallets := handler.NewWalletHandler(a.Wallets)
	investments := handler.NewInvestmentHandler(a.Lending)
	loans := handler.NewLoanHandler(a.Lending)
	previews := handler.NewPreviewHandler(a.Clock)
	poolStatus := handler.NewPoolHandler(a.Lending)

	idempotent := middleware.Idempotency(a.Idempotency, a.Clock)

	r := chi.NewRouter()
	r.Use(middleware.Tracing)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)

	r.Get("/health", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(jwtSecret))

			r.Get("/pool", poolStatus.Status)
			r.Post("/previews/investment", previews.Investment)
			r.Post("/previews/loan", previews.Loan)

			r.Route("/wallets", func(r chi.Router) {
				r.Post("/", wallets.Create)
				r.Get("/me", wallets.Mine)
				r.Get("/{id}", wallets.Get)
				r.Get("/{id}/transactions", wallets.Transactions)
				r.With(idempotent).Post("/{id}/deposit", wallets.Deposit)
				r.With(idempotent).Post("/{id}/withdraw", wallets.Withdraw)
			})
			r.Patch("/transactions/{id}", wallets.Annotate)

			r.Route("/investments", func(r chi.Router) {
				r.With(idempotent).Post("/", investments.Create)
				r.Get("/", investments.List)
				r.Get("/{id}", investments.Get)
				r.Get("/{id}/projection", investments.Projection)
				r.With(idempotent).Post("/{id}/redeem", investments.Redeem)
				r.Delete("/{id}", investments.Cancel)
			})

			r.Route("/loans", func(r chi.Router) {
				r.With(idempotent).Post("/", loans.Create)
				r.Get("/", loans.List)
				r.Get("/{id}", loans.Get)
				r.With(idempotent).Post("/{id}/pay", loans.Pay)
				r.Delete("/{id}", loans.Delete)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Post("/{id}/approve", loans.Approve)
					r.Post("/{id}/reject", loans.Reject)
				})
			})

			r.With(middleware.RequireAdmin).Post("/pool/reconcile", poolStatus.Reconcile)
		})
	})

	return r
}
