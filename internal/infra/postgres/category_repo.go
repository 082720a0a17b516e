package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/budwatch/budwatch/internal/platform/budget"
)

// CategoryRepository persists categories and their month snapshots using
// PostgreSQL
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a new PostgreSQL category repository
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// UpsertCategory inserts or fully overwrites a category by id.
func (r *CategoryRepository) UpsertCategory(ctx context.Context, c *budget.Category) error {
	query := `
		INSERT INTO categories (id, budget_id, group_id, group_name, name, hidden, budgeted, activity, balance, goal_type, goal_target, goal_target_month)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			budget_id = EXCLUDED.budget_id,
			group_id = EXCLUDED.group_id,
			group_name = EXCLUDED.group_name,
			name = EXCLUDED.name,
			hidden = EXCLUDED.hidden,
			budgeted = EXCLUDED.budgeted,
			activity = EXCLUDED.activity,
			balance = EXCLUDED.balance,
			goal_type = EXCLUDED.goal_type,
			goal_target = EXCLUDED.goal_target,
			goal_target_month = EXCLUDED.goal_target_month
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.BudgetID,
		c.GroupID,
		c.GroupName,
		c.Name,
		c.Hidden,
		c.Budgeted,
		c.Activity,
		c.Balance,
		c.GoalType,
		c.GoalTarget,
		c.GoalTargetMonth,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}

	return nil
}

// ListCategories retrieves a budget's visible categories ordered by group.
func (r *CategoryRepository) ListCategories(ctx context.Context, budgetID string) ([]budget.Category, error) {
	query := `
		SELECT id, budget_id, group_id, group_name, name, hidden, budgeted, activity, balance, goal_type, goal_target, goal_target_month
		FROM categories
		WHERE budget_id = $1 AND NOT hidden
		ORDER BY group_name NULLS LAST, name
	`

	rows, err := r.pool.Query(ctx, query, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []budget.Category
	for rows.Next() {
		var c budget.Category
		if err := rows.Scan(
			&c.ID,
			&c.BudgetID,
			&c.GroupID,
			&c.GroupName,
			&c.Name,
			&c.Hidden,
			&c.Budgeted,
			&c.Activity,
			&c.Balance,
			&c.GoalType,
			&c.GoalTarget,
			&c.GoalTargetMonth,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// UpsertMonthlyBudget inserts or fully overwrites one category's snapshot for
// one month.
func (r *CategoryRepository) UpsertMonthlyBudget(ctx context.Context, m *budget.MonthlyBudget) error {
	query := `
		INSERT INTO monthly_budgets (budget_id, month, category_id, budgeted, activity, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (budget_id, month, category_id) DO UPDATE SET
			budgeted = EXCLUDED.budgeted,
			activity = EXCLUDED.activity,
			balance = EXCLUDED.balance
	`

	_, err := r.pool.Exec(ctx, query,
		m.BudgetID,
		m.Month,
		m.CategoryID,
		m.Budgeted,
		m.Activity,
		m.Balance,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert monthly budget: %w", err)
	}

	return nil
}

// AvailableMonths returns the months with a synced category snapshot,
// newest first.
func (r *CategoryRepository) AvailableMonths(ctx context.Context, budgetID string) ([]string, error) {
	query := `
		SELECT DISTINCT month
		FROM monthly_budgets
		WHERE budget_id = $1
		ORDER BY month DESC
	`

	rows, err := r.pool.Query(ctx, query, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query available months: %w", err)
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan month: %w", err)
		}
		months = append(months, m)
	}

	return months, rows.Err()
}

// CurrentMonthCategories joins categories against one month's snapshot.
// Month-scoped figures are NULL when the snapshot has not been synced.
func (r *CategoryRepository) CurrentMonthCategories(ctx context.Context, budgetID, month string) ([]budget.MonthCategory, error) {
	query := `
		SELECT c.id, c.budget_id, c.group_id, c.group_name, c.name, c.hidden,
		       c.budgeted, c.activity, c.balance, c.goal_type, c.goal_target, c.goal_target_month,
		       m.budgeted, m.activity, m.balance
		FROM categories c
		LEFT JOIN monthly_budgets m
		       ON m.budget_id = c.budget_id AND m.category_id = c.id AND m.month = $2
		WHERE c.budget_id = $1
		ORDER BY c.group_name NULLS LAST, c.name
	`

	rows, err := r.pool.Query(ctx, query, budgetID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query month categories: %w", err)
	}
	defer rows.Close()

	var categories []budget.MonthCategory
	for rows.Next() {
		var c budget.MonthCategory
		if err := rows.Scan(
			&c.ID,
			&c.BudgetID,
			&c.GroupID,
			&c.GroupName,
			&c.Name,
			&c.Hidden,
			&c.Budgeted,
			&c.Activity,
			&c.Balance,
			&c.GoalType,
			&c.GoalTarget,
			&c.GoalTargetMonth,
			&c.MonthBudgeted,
			&c.MonthActivity,
			&c.MonthBalance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan month category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}
