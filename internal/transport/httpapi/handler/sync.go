package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/budwatch/budwatch/internal/infra/gateway/ynab"
	"github.com/budwatch/budwatch/internal/platform/budget"
	"github.com/budwatch/budwatch/internal/platform/sync"
	"github.com/budwatch/budwatch/pkg/logger"
)

// SyncServiceInterface defines the sync operations needed by SyncHandler
type SyncServiceInterface interface {
	SyncBudgets(ctx context.Context) ([]budget.Budget, error)
	SyncBudget(ctx context.Context, budgetID string, forceFull bool) *sync.Stats
	SyncMonth(ctx context.Context, budgetID, month string) (int, error)
	Status(ctx context.Context, budgetID string) (*sync.Status, error)
}

// CacheInvalidator drops cached aggregates for a budget after its data
// may have changed.
type CacheInvalidator interface {
	InvalidateBudget(ctx context.Context, budgetID string) error
}

// SyncHandler handles sync trigger and status requests
type SyncHandler struct {
	service SyncServiceInterface
	cache   CacheInvalidator
	logger  *logger.Logger
}

// NewSyncHandler creates a new sync handler. cache may be nil.
func NewSyncHandler(service SyncServiceInterface, cache CacheInvalidator, log *logger.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		cache:   cache,
		logger:  log.WithField("handler", "sync"),
	}
}

// DiscoverBudgets handles POST /sync/budgets
// Fetches the remote budget list and upserts it locally.
func (h *SyncHandler) DiscoverBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.service.SyncBudgets(r.Context())
	if err != nil {
		if ynab.IsRateLimitError(err) {
			respondError(w, "upstream rate limit reached, try again later", http.StatusTooManyRequests)
			return
		}
		h.logger.WithError(err).Error("budget discovery failed")
		respondError(w, "failed to sync budget list", http.StatusBadGateway)
		return
	}

	respondJSON(w, map[string]any{"budgets": budgets, "count": len(budgets)}, http.StatusOK)
}

// TriggerSync handles POST /budgets/{id}/sync
// Runs a full sync cycle for one budget. ?force=true ignores stored cursors.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")
	if budgetID == "" {
		respondError(w, "budget id is required", http.StatusBadRequest)
		return
	}

	forceFull := r.URL.Query().Get("force") == "true"

	stats := h.service.SyncBudget(r.Context(), budgetID, forceFull)

	h.invalidateCache(r.Context(), budgetID)

	status := http.StatusOK
	if stats.RateLimited {
		status = http.StatusTooManyRequests
	}
	respondJSON(w, stats, status)
}

// TriggerMonthSync handles POST /budgets/{id}/months/{month}/sync
// Replaces one month's category snapshot.
func (h *SyncHandler) TriggerMonthSync(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")
	month := chi.URLParam(r, "month")

	if month != "" {
		parsed, err := budget.ParseMonth(month)
		if err != nil {
			respondError(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
			return
		}
		month = parsed.Format(budget.MonthLayout)
	}

	count, err := h.service.SyncMonth(r.Context(), budgetID, month)
	if err != nil {
		if ynab.IsRateLimitError(err) {
			respondError(w, "upstream rate limit reached, try again later", http.StatusTooManyRequests)
			return
		}
		h.logger.WithError(err).Error("month sync failed", "budget_id", budgetID, "month", month)
		respondError(w, "failed to sync month", http.StatusBadGateway)
		return
	}

	h.invalidateCache(r.Context(), budgetID)

	respondJSON(w, map[string]any{"month": month, "categories": count}, http.StatusOK)
}

// GetStatus handles GET /budgets/{id}/sync/status
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")

	status, err := h.service.Status(r.Context(), budgetID)
	if err != nil {
		h.logger.WithError(err).Error("failed to load sync status", "budget_id", budgetID)
		respondError(w, "failed to load sync status", http.StatusInternalServerError)
		return
	}

	respondJSON(w, status, http.StatusOK)
}

// invalidateCache is best effort; a stale aggregate expires on its own TTL.
func (h *SyncHandler) invalidateCache(ctx context.Context, budgetID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateBudget(ctx, budgetID); err != nil {
		h.logger.WithError(err).Warn("cache invalidation failed", "budget_id", budgetID)
	}
}
