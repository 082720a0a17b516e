package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/budwatch/budwatch/internal/platform/budget"
)

// ScheduledTransactionRepository persists scheduled transactions using
// PostgreSQL
type ScheduledTransactionRepository struct {
	pool *pgxpool.Pool
}

// NewScheduledTransactionRepository creates a new PostgreSQL scheduled
// transaction repository
func NewScheduledTransactionRepository(pool *pgxpool.Pool) *ScheduledTransactionRepository {
	return &ScheduledTransactionRepository{pool: pool}
}

// UpsertScheduledTransaction inserts or fully overwrites a scheduled
// transaction by id.
func (r *ScheduledTransactionRepository) UpsertScheduledTransaction(ctx context.Context, s *budget.ScheduledTransaction) error {
	query := `
		INSERT INTO scheduled_transactions (id, budget_id, account_id, account_name, date_first, date_next, frequency, amount, memo, payee_id, payee_name, category_id, category_name, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			budget_id = EXCLUDED.budget_id,
			account_id = EXCLUDED.account_id,
			account_name = EXCLUDED.account_name,
			date_first = EXCLUDED.date_first,
			date_next = EXCLUDED.date_next,
			frequency = EXCLUDED.frequency,
			amount = EXCLUDED.amount,
			memo = EXCLUDED.memo,
			payee_id = EXCLUDED.payee_id,
			payee_name = EXCLUDED.payee_name,
			category_id = EXCLUDED.category_id,
			category_name = EXCLUDED.category_name,
			deleted = EXCLUDED.deleted
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.BudgetID,
		s.AccountID,
		s.AccountName,
		s.DateFirst,
		s.DateNext,
		s.Frequency,
		s.Amount,
		s.Memo,
		s.PayeeID,
		s.PayeeName,
		s.CategoryID,
		s.CategoryName,
		s.Deleted,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert scheduled transaction: %w", err)
	}

	return nil
}

// ScheduledTransactions returns a budget's active scheduled transactions
// ordered by next expected date.
func (r *ScheduledTransactionRepository) ScheduledTransactions(ctx context.Context, budgetID string) ([]budget.ScheduledTransaction, error) {
	query := `
		SELECT id, budget_id, account_id, account_name, date_first, date_next, frequency, amount, memo, payee_id, payee_name, category_id, category_name, deleted
		FROM scheduled_transactions
		WHERE budget_id = $1 AND NOT deleted
		ORDER BY date_next
	`

	rows, err := r.pool.Query(ctx, query, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled transactions: %w", err)
	}
	defer rows.Close()

	var scheds []budget.ScheduledTransaction
	for rows.Next() {
		var s budget.ScheduledTransaction
		if err := rows.Scan(
			&s.ID,
			&s.BudgetID,
			&s.AccountID,
			&s.AccountName,
			&s.DateFirst,
			&s.DateNext,
			&s.Frequency,
			&s.Amount,
			&s.Memo,
			&s.PayeeID,
			&s.PayeeName,
			&s.CategoryID,
			&s.CategoryName,
			&s.Deleted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled transaction: %w", err)
		}
		scheds = append(scheds, s)
	}

	return scheds, rows.Err()
}
