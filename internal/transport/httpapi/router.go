package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/budwatch/budwatch/internal/transport/httpapi/handler"
	"github.com/budwatch/budwatch/internal/transport/httpapi/middleware"
	"github.com/budwatch/budwatch/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger           *logger.Logger
	AllowedOrigins   []string
	AuthHandler      *handler.AuthHandler
	BudgetHandler    *handler.BudgetHandler
	SyncHandler      *handler.SyncHandler
	AlertHandler     *handler.AlertHandler
	AnalyticsHandler *handler.AnalyticsHandler
	HealthHandler    *handler.HealthHandler
	JWTMiddleware    func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit())

	// Health check endpoints (no authentication required)
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
		r.Get("/health/detailed", cfg.HealthHandler.GetHealthDetailed)
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public - no authentication required)
		if cfg.AuthHandler != nil {
			r.Post("/auth/token", cfg.AuthHandler.IssueToken)
		}

		// Protected routes (require JWT authentication)
		if cfg.JWTMiddleware != nil {
			r.Group(func(r chi.Router) {
				r.Use(cfg.JWTMiddleware)

				// Budget discovery sync
				if cfg.SyncHandler != nil {
					r.Post("/sync/budgets", cfg.SyncHandler.DiscoverBudgets)
				}

				// Budget routes
				if cfg.BudgetHandler != nil {
					r.Get("/budgets", cfg.BudgetHandler.ListBudgets)
					r.Get("/budgets/{id}", cfg.BudgetHandler.GetBudget)
					r.Get("/budgets/{id}/accounts", cfg.BudgetHandler.ListAccounts)
					r.Get("/budgets/{id}/categories", cfg.BudgetHandler.ListCategories)
					r.Get("/budgets/{id}/scheduled", cfg.BudgetHandler.ListScheduledTransactions)
				}

				// Per-budget sync routes
				if cfg.SyncHandler != nil {
					r.Post("/budgets/{id}/sync", cfg.SyncHandler.TriggerSync)
					r.Post("/budgets/{id}/months/{month}/sync", cfg.SyncHandler.TriggerMonthSync)
					r.Get("/budgets/{id}/sync/status", cfg.SyncHandler.GetStatus)
				}

				// Alert routes
				if cfg.AlertHandler != nil {
					r.Get("/budgets/{id}/alerts", cfg.AlertHandler.ListAlerts)
					r.Post("/budgets/{id}/alerts/run", cfg.AlertHandler.RunDetection)
					r.Post("/alerts/{id}/acknowledge", cfg.AlertHandler.AcknowledgeAlert)
					r.Post("/alerts/{id}/dismiss", cfg.AlertHandler.DismissAlert)
					r.Get("/alerts/config", cfg.AlertHandler.GetConfigSchemas)
				}

				// Analytics routes
				if cfg.AnalyticsHandler != nil {
					r.Get("/budgets/{id}/analytics/spending", cfg.AnalyticsHandler.GetSpendingByCategory)
					r.Get("/budgets/{id}/analytics/trend", cfg.AnalyticsHandler.GetMonthlyTrend)
					r.Get("/budgets/{id}/months", cfg.AnalyticsHandler.GetMonths)
					r.Get("/budgets/{id}/months/{month}", cfg.AnalyticsHandler.GetMonthOverview)
					r.Get("/budgets/{id}/transactions", cfg.AnalyticsHandler.GetTransactions)
				}
			})
		}
	})

	return r
}
