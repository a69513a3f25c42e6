package rest

import (
	"log/slog"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/dot-spend/internal/auth"
	"github.com/frahmantamala/dot-spend/internal/budget"
	"github.com/frahmantamala/dot-spend/internal/category"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/insights"
	"github.com/frahmantamala/dot-spend/internal/transport"
	"github.com/frahmantamala/dot-spend/internal/transport/middleware"
)

// Handlers groups the domain handlers mounted by the router. Nil handlers are skipped.
type Handlers struct {
	Expense  *expense.Handler
	Budget   *budget.Handler
	Insights *insights.Handler
	Category *category.Handler
}

func RegisterAllRoutes(router *chi.Mux, handlers Handlers, issuer *auth.TokenIssuer, backend Pinger, backendName string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(backend, backendName)
	base := transport.NewBaseHandler(logger)

	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticate(base, issuer))

			if handlers.Expense != nil {
				pr.Route("/expenses", func(er chi.Router) {
					er.Post("/", handlers.Expense.CreateExpense)
					er.Get("/", handlers.Expense.ListExpenses)
					er.Get("/summary", handlers.Expense.Summary)
					er.Get("/{id}", handlers.Expense.GetExpense)
					er.Patch("/{id}", handlers.Expense.EditExpense)
					er.Delete("/{id}", handlers.Expense.DeleteExpense)
				})
			}

			if handlers.Budget != nil {
				pr.Route("/budgets", func(br chi.Router) {
					br.Get("/", handlers.Budget.GetStatus)
					br.Put("/{category}", handlers.Budget.SetBudget)
					br.Delete("/{category}", handlers.Budget.RemoveBudget)
				})
			}

			if handlers.Insights != nil {
				pr.Get("/insights", handlers.Insights.GetInsights)
			}

			if handlers.Category != nil {
				pr.Get("/categories", handlers.Category.GetCategories)
			}
		})
	})
}
