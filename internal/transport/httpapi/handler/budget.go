package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/budwatch/budwatch/internal/platform/budget"
	"github.com/budwatch/budwatch/pkg/logger"
)

// BudgetStore is the read surface over the local budget cache.
type BudgetStore interface {
	ListBudgets(ctx context.Context) ([]budget.Budget, error)
	GetBudget(ctx context.Context, id string) (*budget.Budget, error)
	ListAccounts(ctx context.Context, budgetID string) ([]budget.Account, error)
	ListCategories(ctx context.Context, budgetID string) ([]budget.Category, error)
	ScheduledTransactions(ctx context.Context, budgetID string) ([]budget.ScheduledTransaction, error)
}

// BudgetHandler serves the cached budget entities
type BudgetHandler struct {
	store  BudgetStore
	logger *logger.Logger
}

// NewBudgetHandler creates a new budget handler
func NewBudgetHandler(store BudgetStore, log *logger.Logger) *BudgetHandler {
	return &BudgetHandler{
		store:  store,
		logger: log.WithField("handler", "budgets"),
	}
}

// ListBudgets handles GET /budgets
func (h *BudgetHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.store.ListBudgets(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list budgets")
		respondError(w, "failed to list budgets", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{"budgets": budgets, "count": len(budgets)}, http.StatusOK)
}

// GetBudget handles GET /budgets/{id}
func (h *BudgetHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b, err := h.store.GetBudget(r.Context(), id)
	if err != nil {
		if errors.Is(err, budget.ErrBudgetNotFound) {
			respondError(w, "budget not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("failed to load budget", "budget_id", id)
		respondError(w, "failed to load budget", http.StatusInternalServerError)
		return
	}

	respondJSON(w, b, http.StatusOK)
}

// ListAccounts handles GET /budgets/{id}/accounts
func (h *BudgetHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")

	accounts, err := h.store.ListAccounts(r.Context(), budgetID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list accounts", "budget_id", budgetID)
		respondError(w, "failed to list accounts", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{"accounts": accounts, "count": len(accounts)}, http.StatusOK)
}

// ListCategories handles GET /budgets/{id}/categories
// Hidden categories are excluded.
func (h *BudgetHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")

	categories, err := h.store.ListCategories(r.Context(), budgetID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list categories", "budget_id", budgetID)
		respondError(w, "failed to list categories", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{"categories": categories, "count": len(categories)}, http.StatusOK)
}

// ListScheduledTransactions handles GET /budgets/{id}/scheduled
// Tombstoned schedules are excluded.
func (h *BudgetHandler) ListScheduledTransactions(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")

	scheduled, err := h.store.ScheduledTransactions(r.Context(), budgetID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list scheduled transactions", "budget_id", budgetID)
		respondError(w, "failed to list scheduled transactions", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{"scheduled_transactions": scheduled, "count": len(scheduled)}, http.StatusOK)
}
