package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/budwatch/budwatch/internal/platform/budget"
)

// CursorRepository persists sync cursors using PostgreSQL
type CursorRepository struct {
	pool *pgxpool.Pool
}

// NewCursorRepository creates a new PostgreSQL cursor repository
func NewCursorRepository(pool *pgxpool.Pool) *CursorRepository {
	return &CursorRepository{pool: pool}
}

// GetCursor returns the stored cursor for a (budget, entity type) pair, or
// nil when none has been stored yet.
func (r *CursorRepository) GetCursor(ctx context.Context, budgetID, entityType string) (*budget.SyncCursor, error) {
	query := `
		SELECT budget_id, entity_type, server_knowledge, last_synced_at
		FROM sync_metadata
		WHERE budget_id = $1 AND entity_type = $2
	`

	c := &budget.SyncCursor{}
	err := r.pool.QueryRow(ctx, query, budgetID, entityType).Scan(
		&c.BudgetID,
		&c.EntityType,
		&c.ServerKnowledge,
		&c.LastSyncedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cursor: %w", err)
	}

	return c, nil
}

// SetCursor stores the new server knowledge for a (budget, entity type)
// pair, stamping the sync time.
func (r *CursorRepository) SetCursor(ctx context.Context, budgetID, entityType string, knowledge int64) error {
	query := `
		INSERT INTO sync_metadata (budget_id, entity_type, server_knowledge, last_synced_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (budget_id, entity_type) DO UPDATE SET
			server_knowledge = EXCLUDED.server_knowledge,
			last_synced_at = now()
	`

	_, err := r.pool.Exec(ctx, query, budgetID, entityType, knowledge)
	if err != nil {
		return fmt.Errorf("failed to set cursor: %w", err)
	}

	return nil
}

// LastSyncedAt returns the most recent cursor advance across all entity
// types for a budget, or nil when the budget has never synced.
func (r *CursorRepository) LastSyncedAt(ctx context.Context, budgetID string) (*time.Time, error) {
	query := `SELECT MAX(last_synced_at) FROM sync_metadata WHERE budget_id = $1`

	var last *time.Time
	if err := r.pool.QueryRow(ctx, query, budgetID).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return last, nil
}
