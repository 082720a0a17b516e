package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/budwatch/budwatch/internal/platform/alerts"
	"github.com/budwatch/budwatch/internal/platform/budget"
)

// AlertRepository persists alerts using PostgreSQL. Rows are acknowledged or
// dismissed, never deleted.
type AlertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository creates a new PostgreSQL alert repository
func NewAlertRepository(pool *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{pool: pool}
}

var _ alerts.Store = (*AlertRepository)(nil)

// ActiveAlertExists reports whether an un-dismissed alert already exists for
// the same (type, related entity) pair.
func (r *AlertRepository) ActiveAlertExists(ctx context.Context, budgetID string, alertType alerts.Type, relatedEntityID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE budget_id = $1 AND alert_type = $2 AND related_entity_id = $3 AND NOT dismissed
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, budgetID, string(alertType), relatedEntityID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check alert existence: %w", err)
	}

	return exists, nil
}

// SaveAlert stores a new alert. Metadata is serialized as JSONB.
func (r *AlertRepository) SaveAlert(ctx context.Context, a *alerts.Alert) error {
	query := `
		INSERT INTO alerts (id, budget_id, alert_type, severity, title, description, related_entity_id, related_entity_type, metadata, created_at, acknowledged_at, dismissed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.BudgetID,
		string(a.Type),
		string(a.Severity),
		a.Title,
		a.Description,
		a.RelatedEntityID,
		a.RelatedEntityType,
		a.Metadata,
		a.CreatedAt,
		a.AcknowledgedAt,
		a.Dismissed,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}

	return nil
}

const alertColumns = `id, budget_id, alert_type, severity, title, description,
	related_entity_id, related_entity_type, metadata, created_at, acknowledged_at, dismissed`

func scanAlert(row pgx.Row) (*alerts.Alert, error) {
	a := &alerts.Alert{}
	err := row.Scan(
		&a.ID,
		&a.BudgetID,
		&a.Type,
		&a.Severity,
		&a.Title,
		&a.Description,
		&a.RelatedEntityID,
		&a.RelatedEntityType,
		&a.Metadata,
		&a.CreatedAt,
		&a.AcknowledgedAt,
		&a.Dismissed,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAlerts returns a budget's alerts, newest first. Dismissed alerts are
// excluded unless asked for.
func (r *AlertRepository) ListAlerts(ctx context.Context, budgetID string, includeDismissed bool) ([]alerts.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE budget_id = $1 AND (dismissed = FALSE OR $2)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, budgetID, includeDismissed)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var out []alerts.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, *a)
	}

	return out, rows.Err()
}

// GetAlert retrieves an alert by id.
func (r *AlertRepository) GetAlert(ctx context.Context, id string) (*alerts.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	a, err := scanAlert(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, budget.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return a, nil
}

// AcknowledgeAlert stamps the acknowledged time.
func (r *AlertRepository) AcknowledgeAlert(ctx context.Context, id string) error {
	query := `UPDATE alerts SET acknowledged_at = now() WHERE id = $1 AND acknowledged_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already acknowledged or missing; distinguish the two.
		if _, err := r.GetAlert(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

// DismissAlert sets the dismissed flag, re-arming detection for the related
// entity.
func (r *AlertRepository) DismissAlert(ctx context.Context, id string) error {
	query := `UPDATE alerts SET dismissed = TRUE WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to dismiss alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return budget.ErrAlertNotFound
	}

	return nil
}
