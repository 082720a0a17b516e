package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/budwatch/budwatch/internal/platform/budget"
)

// BudgetRepository persists budgets using PostgreSQL
type BudgetRepository struct {
	pool *pgxpool.Pool
}

// NewBudgetRepository creates a new PostgreSQL budget repository
func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{pool: pool}
}

// UpsertBudget inserts or fully overwrites a budget by id.
func (r *BudgetRepository) UpsertBudget(ctx context.Context, b *budget.Budget) error {
	query := `
		INSERT INTO budgets (id, name, last_modified_on, first_month, last_month, currency_format, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			last_modified_on = EXCLUDED.last_modified_on,
			first_month = EXCLUDED.first_month,
			last_month = EXCLUDED.last_month,
			currency_format = EXCLUDED.currency_format,
			updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query,
		b.ID,
		b.Name,
		b.LastModifiedOn,
		b.FirstMonth,
		b.LastMonth,
		b.CurrencyFormat,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert budget: %w", err)
	}

	return nil
}

// GetBudget retrieves a budget by id.
func (r *BudgetRepository) GetBudget(ctx context.Context, id string) (*budget.Budget, error) {
	query := `
		SELECT id, name, last_modified_on, first_month, last_month, currency_format, created_at, updated_at
		FROM budgets
		WHERE id = $1
	`

	b := &budget.Budget{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.Name,
		&b.LastModifiedOn,
		&b.FirstMonth,
		&b.LastMonth,
		&b.CurrencyFormat,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, budget.ErrBudgetNotFound
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	return b, nil
}

// ListBudgets retrieves all cached budgets.
func (r *BudgetRepository) ListBudgets(ctx context.Context) ([]budget.Budget, error) {
	query := `
		SELECT id, name, last_modified_on, first_month, last_month, currency_format, created_at, updated_at
		FROM budgets
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []budget.Budget
	for rows.Next() {
		var b budget.Budget
		if err := rows.Scan(
			&b.ID,
			&b.Name,
			&b.LastModifiedOn,
			&b.FirstMonth,
			&b.LastMonth,
			&b.CurrencyFormat,
			&b.CreatedAt,
			&b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}

	return budgets, rows.Err()
}

// AccountRepository persists accounts using PostgreSQL
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// UpsertAccount inserts or fully overwrites an account by id.
func (r *AccountRepository) UpsertAccount(ctx context.Context, a *budget.Account) error {
	query := `
		INSERT INTO accounts (id, budget_id, name, type, on_budget, closed, balance, cleared_balance, uncleared_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			budget_id = EXCLUDED.budget_id,
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			on_budget = EXCLUDED.on_budget,
			closed = EXCLUDED.closed,
			balance = EXCLUDED.balance,
			cleared_balance = EXCLUDED.cleared_balance,
			uncleared_balance = EXCLUDED.uncleared_balance
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.BudgetID,
		a.Name,
		a.Type,
		a.OnBudget,
		a.Closed,
		a.Balance,
		a.ClearedBalance,
		a.UnclearedBalance,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	return nil
}

// ListAccounts retrieves a budget's accounts, open ones first.
func (r *AccountRepository) ListAccounts(ctx context.Context, budgetID string) ([]budget.Account, error) {
	query := `
		SELECT id, budget_id, name, type, on_budget, closed, balance, cleared_balance, uncleared_balance
		FROM accounts
		WHERE budget_id = $1
		ORDER BY closed, name
	`

	rows, err := r.pool.Query(ctx, query, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []budget.Account
	for rows.Next() {
		var a budget.Account
		if err := rows.Scan(
			&a.ID,
			&a.BudgetID,
			&a.Name,
			&a.Type,
			&a.OnBudget,
			&a.Closed,
			&a.Balance,
			&a.ClearedBalance,
			&a.UnclearedBalance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}
