// Package api exposes the bookkeeping services over HTTP. Handlers stay
// thin: decode, delegate to a service, map domain errors onto statuses.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/smallbooks/bookkeeper/internal/accounts"
	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/bills"
	"github.com/smallbooks/bookkeeper/internal/importer"
	"github.com/smallbooks/bookkeeper/internal/ledger"
	"github.com/smallbooks/bookkeeper/internal/reconcile"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// Deps carries the wired services the router serves.
type Deps struct {
	Store     *store.Store
	Audit     *audit.Recorder
	Accounts  *accounts.Directory
	Poster    *ledger.Poster
	Bills     *bills.Manager
	Allocator *bills.Allocator
	Reconcile *reconcile.Engine
	Importer  *importer.Service
}

// NewRouter assembles the HTTP API. The binary and the integration tests
// share this router so they exercise the same middleware stack.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(ActorMiddleware)

	accountsHandler := NewAccountsHandler(d.Accounts, d.Poster)
	vendorsHandler := NewVendorsHandler(d.Store, d.Audit)
	journalsHandler := NewJournalsHandler(d.Poster)
	billsHandler := NewBillsHandler(d.Bills, d.Allocator)
	bankTxnsHandler := NewBankTxnsHandler(d.Store, d.Importer)
	reconciliationsHandler := NewReconciliationsHandler(d.Reconcile)
	auditHandler := NewAuditHandler(d.Audit)
	statsHandler := NewStatsHandler(d.Store)

	// Health check endpoint.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Account directory endpoints.
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accountsHandler.List)
			r.Post("/", accountsHandler.Create)
			r.Get("/lookup", accountsHandler.Lookup)
			r.Get("/{id}", accountsHandler.Get)
			r.Put("/{id}", accountsHandler.Update)
			r.Delete("/{id}", accountsHandler.Delete)
			r.Get("/{id}/balance", accountsHandler.Balance)
			r.Get("/{id}/ledger", accountsHandler.Ledger)
		})

		// Vendor endpoints.
		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", vendorsHandler.List)
			r.Post("/", vendorsHandler.Create)
			r.Get("/{id}", vendorsHandler.Get)
		})

		// Journal endpoints.
		r.Route("/journals", func(r chi.Router) {
			r.Get("/", journalsHandler.List)
			r.Post("/", journalsHandler.Create)
			r.Get("/{id}", journalsHandler.Get)
			r.Post("/{id}/reverse", journalsHandler.Reverse)
		})

		// Bill and allocation endpoints.
		r.Route("/bills", func(r chi.Router) {
			r.Get("/", billsHandler.List)
			r.Post("/", billsHandler.Create)
			r.Get("/{id}", billsHandler.Get)
			r.Put("/{id}", billsHandler.Update)
			r.Delete("/{id}", billsHandler.Delete)
			r.Get("/{id}/payments", billsHandler.ListPayments)
			r.Post("/{id}/payments", billsHandler.CreatePayment)
			r.Get("/{id}/refunds", billsHandler.ListRefunds)
			r.Post("/{id}/refunds", billsHandler.CreateRefund)
		})
		r.Delete("/payments/{id}", billsHandler.DeletePayment)

		// Bank statement endpoints.
		r.Route("/bank-transactions", func(r chi.Router) {
			r.Get("/", bankTxnsHandler.List)
			r.Post("/", bankTxnsHandler.Create)
			r.Post("/import", bankTxnsHandler.Import)
			r.Get("/{id}", bankTxnsHandler.Get)
		})

		// Reconciliation session endpoints.
		r.Route("/reconciliations", func(r chi.Router) {
			r.Get("/", reconciliationsHandler.List)
			r.Post("/", reconciliationsHandler.Create)
			r.Get("/{id}", reconciliationsHandler.Get)
			r.Patch("/{id}", reconciliationsHandler.Update)
			r.Get("/{id}/totals", reconciliationsHandler.Totals)
			r.Get("/{id}/candidates", reconciliationsHandler.Candidates)
			r.Get("/{id}/items", reconciliationsHandler.Items)
			r.Post("/{id}/toggle", reconciliationsHandler.Toggle)
			r.Post("/{id}/complete", reconciliationsHandler.Complete)
			r.Post("/{id}/reopen", reconciliationsHandler.Reopen)
		})

		// Audit trail endpoint.
		r.Get("/audit/events", auditHandler.List)

		// Stats endpoint.
		r.Get("/stats", statsHandler.Get)
	})

	return r
}
