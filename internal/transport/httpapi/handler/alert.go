package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/budwatch/budwatch/internal/platform/alerts"
	"github.com/budwatch/budwatch/internal/platform/budget"
	"github.com/budwatch/budwatch/pkg/logger"
)

// AlertEngine runs detection for one budget.
type AlertEngine interface {
	RunAll(ctx context.Context, budgetID string) *alerts.RunResult
	Schemas() map[alerts.Type]map[string]alerts.ConfigField
}

// AlertStore is the alert persistence surface needed by the handler.
type AlertStore interface {
	ListAlerts(ctx context.Context, budgetID string, includeDismissed bool) ([]alerts.Alert, error)
	GetAlert(ctx context.Context, id string) (*alerts.Alert, error)
	AcknowledgeAlert(ctx context.Context, id string) error
	DismissAlert(ctx context.Context, id string) error
}

// AlertHandler handles alert listing, lifecycle, and detection runs
type AlertHandler struct {
	engine AlertEngine
	store  AlertStore
	logger *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(engine AlertEngine, store AlertStore, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		engine: engine,
		store:  store,
		logger: log.WithField("handler", "alerts"),
	}
}

// ListAlerts handles GET /budgets/{id}/alerts
// ?include_dismissed=true also returns dismissed alerts; ?severity and
// ?type narrow the result.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")
	includeDismissed := r.URL.Query().Get("include_dismissed") == "true"

	list, err := h.store.ListAlerts(r.Context(), budgetID, includeDismissed)
	if err != nil {
		h.logger.WithError(err).Error("failed to list alerts", "budget_id", budgetID)
		respondError(w, "failed to list alerts", http.StatusInternalServerError)
		return
	}

	if severity := r.URL.Query().Get("severity"); severity != "" {
		list = filterAlerts(list, func(a *alerts.Alert) bool { return string(a.Severity) == severity })
	}
	if alertType := r.URL.Query().Get("type"); alertType != "" {
		list = filterAlerts(list, func(a *alerts.Alert) bool { return string(a.Type) == alertType })
	}

	respondJSON(w, map[string]any{"alerts": list, "count": len(list)}, http.StatusOK)
}

func filterAlerts(list []alerts.Alert, keep func(*alerts.Alert) bool) []alerts.Alert {
	filtered := list[:0]
	for i := range list {
		if keep(&list[i]) {
			filtered = append(filtered, list[i])
		}
	}
	return filtered
}

// RunDetection handles POST /budgets/{id}/alerts/run
// Runs every detector against the local cache and persists new alerts.
func (h *AlertHandler) RunDetection(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")
	if budgetID == "" {
		respondError(w, "budget id is required", http.StatusBadRequest)
		return
	}

	result := h.engine.RunAll(r.Context(), budgetID)
	respondJSON(w, result, http.StatusOK)
}

// AcknowledgeAlert handles POST /alerts/{id}/acknowledge
func (h *AlertHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.store.AcknowledgeAlert)
}

// DismissAlert handles POST /alerts/{id}/dismiss
// A dismissed alert no longer blocks re-detection of the same finding.
func (h *AlertHandler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.store.DismissAlert)
}

// GetConfigSchemas handles GET /alerts/config
// Returns each detector's tunable parameters and defaults.
func (h *AlertHandler) GetConfigSchemas(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.engine.Schemas(), http.StatusOK)
}

func (h *AlertHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, string) error) {
	id := chi.URLParam(r, "id")

	if err := op(r.Context(), id); err != nil {
		if errors.Is(err, budget.ErrAlertNotFound) {
			respondError(w, "alert not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("alert state change failed", "alert_id", id)
		respondError(w, "failed to update alert", http.StatusInternalServerError)
		return
	}

	alert, err := h.store.GetAlert(r.Context(), id)
	if err != nil {
		respondError(w, "failed to load alert", http.StatusInternalServerError)
		return
	}

	respondJSON(w, alert, http.StatusOK)
}
