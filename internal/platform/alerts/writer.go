package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/budwatch/budwatch/pkg/logger"
)

// Writer persists detected alerts, skipping duplicates: a candidate is
// dropped when an un-dismissed alert with the same (type, related entity)
// pair already exists. Dismissing the old alert re-arms detection for that
// entity.
type Writer struct {
	store  Store
	logger *logger.Logger
	now    func() time.Time
}

// NewWriter creates an alert writer.
func NewWriter(store Store, log *logger.Logger) *Writer {
	return &Writer{
		store:  store,
		logger: log.WithField("service", "alert_writer"),
		now:    time.Now,
	}
}

// Write persists one alert unless an active duplicate exists. Returns true
// when the alert was stored.
func (w *Writer) Write(ctx context.Context, a *Alert) (bool, error) {
	if a.RelatedEntityID != nil {
		exists, err := w.store.ActiveAlertExists(ctx, a.BudgetID, a.Type, *a.RelatedEntityID)
		if err != nil {
			return false, fmt.Errorf("failed to check for duplicate alert: %w", err)
		}
		if exists {
			w.logger.Debug("skipping duplicate alert",
				"alert_type", string(a.Type), "related_entity_id", *a.RelatedEntityID)
			return false, nil
		}
	}

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = w.now().UTC()
	}

	if err := w.store.SaveAlert(ctx, a); err != nil {
		return false, fmt.Errorf("failed to save alert: %w", err)
	}

	w.logger.Info("alert created",
		"alert_type", string(a.Type), "severity", string(a.Severity), "title", a.Title)
	return true, nil
}
