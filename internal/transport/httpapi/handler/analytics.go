package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/budwatch/budwatch/internal/module/analytics"
	"github.com/budwatch/budwatch/internal/platform/budget"
	"github.com/budwatch/budwatch/pkg/logger"
)

// AnalyticsService is the read-only analytics surface used by the handler.
type AnalyticsService interface {
	SpendingByCategory(ctx context.Context, budgetID string, days int) ([]budget.CategorySpending, error)
	MonthlyTrend(ctx context.Context, budgetID string, months int) ([]budget.MonthlySpending, error)
	MonthOverview(ctx context.Context, budgetID, month string) (*analytics.MonthOverview, error)
	Months(ctx context.Context, budgetID string) (*analytics.MonthsSummary, error)
	RecentTransactions(ctx context.Context, budgetID string, limit int) ([]budget.Transaction, error)
	MonthTransactions(ctx context.Context, budgetID, month string) ([]budget.Transaction, error)
}

// AnalyticsHandler handles spending analytics requests
type AnalyticsHandler struct {
	service AnalyticsService
	logger  *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service AnalyticsService, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  log.WithField("handler", "analytics"),
	}
}

// GetSpendingByCategory handles GET /budgets/{id}/analytics/spending
// ?days controls the trailing window, default 30.
func (h *AnalyticsHandler) GetSpendingByCategory(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")
	days := queryInt(r, "days", 30, 1, 365)

	spending, err := h.service.SpendingByCategory(r.Context(), budgetID, days)
	if err != nil {
		h.logger.WithError(err).Error("failed to load category spending", "budget_id", budgetID)
		respondError(w, "failed to load category spending", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{"days": days, "categories": spending}, http.StatusOK)
}

// GetMonthlyTrend handles GET /budgets/{id}/analytics/trend
// ?months controls the trailing window, default 6.
func (h *AnalyticsHandler) GetMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")
	months := queryInt(r, "months", 6, 1, 60)

	trend, err := h.service.MonthlyTrend(r.Context(), budgetID, months)
	if err != nil {
		h.logger.WithError(err).Error("failed to load monthly trend", "budget_id", budgetID)
		respondError(w, "failed to load monthly trend", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{"months": months, "trend": trend}, http.StatusOK)
}

// GetMonthOverview handles GET /budgets/{id}/months/{month}
// month "current" or empty resolves to the current month.
func (h *AnalyticsHandler) GetMonthOverview(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")
	month := chi.URLParam(r, "month")
	if month == "current" {
		month = ""
	}

	overview, err := h.service.MonthOverview(r.Context(), budgetID, month)
	if err != nil {
		if errors.Is(err, budget.ErrInvalidMonth) {
			respondError(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
			return
		}
		h.logger.WithError(err).Error("failed to load month overview", "budget_id", budgetID)
		respondError(w, "failed to load month overview", http.StatusInternalServerError)
		return
	}

	respondJSON(w, overview, http.StatusOK)
}

// GetMonths handles GET /budgets/{id}/months
// Lists months with synced snapshots and the newest transaction date.
func (h *AnalyticsHandler) GetMonths(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")

	summary, err := h.service.Months(r.Context(), budgetID)
	if err != nil {
		h.logger.WithError(err).Error("failed to load months", "budget_id", budgetID)
		respondError(w, "failed to load months", http.StatusInternalServerError)
		return
	}

	respondJSON(w, summary, http.StatusOK)
}

// GetTransactions handles GET /budgets/{id}/transactions
// ?limit caps the page, default 100. ?month scopes to one calendar month
// and ignores limit.
func (h *AnalyticsHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")

	if month := r.URL.Query().Get("month"); month != "" {
		transactions, err := h.service.MonthTransactions(r.Context(), budgetID, month)
		if err != nil {
			if errors.Is(err, budget.ErrInvalidMonth) {
				respondError(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
				return
			}
			h.logger.WithError(err).Error("failed to list month transactions", "budget_id", budgetID)
			respondError(w, "failed to list transactions", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"transactions": transactions, "count": len(transactions)}, http.StatusOK)
		return
	}

	limit := queryInt(r, "limit", 100, 1, 500)

	transactions, err := h.service.RecentTransactions(r.Context(), budgetID, limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list transactions", "budget_id", budgetID)
		respondError(w, "failed to list transactions", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{"transactions": transactions, "count": len(transactions)}, http.StatusOK)
}

// queryInt parses an integer query parameter, clamped to [min, max].
func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
