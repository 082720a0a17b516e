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

// TransactionRepository persists transactions and serves the aggregate
// queries the analytics and detector layers run against. All reads filter
// tombstoned rows.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, budget_id, account_id, account_name, date, amount, memo, cleared, approved,
	flag_color, payee_id, payee_name, category_id, category_name,
	transfer_account_id, transfer_transaction_id, import_id, deleted`

func scanTransaction(row pgx.Row) (*budget.Transaction, error) {
	t := &budget.Transaction{}
	err := row.Scan(
		&t.ID,
		&t.BudgetID,
		&t.AccountID,
		&t.AccountName,
		&t.Date,
		&t.Amount,
		&t.Memo,
		&t.Cleared,
		&t.Approved,
		&t.FlagColor,
		&t.PayeeID,
		&t.PayeeName,
		&t.CategoryID,
		&t.CategoryName,
		&t.TransferAccountID,
		&t.TransferTransactionID,
		&t.ImportID,
		&t.Deleted,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func collectTransactions(rows pgx.Rows) ([]budget.Transaction, error) {
	defer rows.Close()

	var txns []budget.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}

	return txns, rows.Err()
}

// UpsertTransaction inserts or fully overwrites a transaction by id. Remote
// deletions arrive with the deleted flag set and keep the row as a tombstone.
func (r *TransactionRepository) UpsertTransaction(ctx context.Context, t *budget.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			budget_id = EXCLUDED.budget_id,
			account_id = EXCLUDED.account_id,
			account_name = EXCLUDED.account_name,
			date = EXCLUDED.date,
			amount = EXCLUDED.amount,
			memo = EXCLUDED.memo,
			cleared = EXCLUDED.cleared,
			approved = EXCLUDED.approved,
			flag_color = EXCLUDED.flag_color,
			payee_id = EXCLUDED.payee_id,
			payee_name = EXCLUDED.payee_name,
			category_id = EXCLUDED.category_id,
			category_name = EXCLUDED.category_name,
			transfer_account_id = EXCLUDED.transfer_account_id,
			transfer_transaction_id = EXCLUDED.transfer_transaction_id,
			import_id = EXCLUDED.import_id,
			deleted = EXCLUDED.deleted
	`

	_, err := r.pool.Exec(ctx, query,
		t.ID,
		t.BudgetID,
		t.AccountID,
		t.AccountName,
		t.Date,
		t.Amount,
		t.Memo,
		t.Cleared,
		t.Approved,
		t.FlagColor,
		t.PayeeID,
		t.PayeeName,
		t.CategoryID,
		t.CategoryName,
		t.TransferAccountID,
		t.TransferTransactionID,
		t.ImportID,
		t.Deleted,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}

	return nil
}

// GetTransaction retrieves a transaction by id, tombstones included.
func (r *TransactionRepository) GetTransaction(ctx context.Context, id string) (*budget.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, budget.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return t, nil
}

// RecentTransactions returns posted transactions dated on or after since,
// newest first.
func (r *TransactionRepository) RecentTransactions(ctx context.Context, budgetID string, since time.Time) ([]budget.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE budget_id = $1 AND date >= $2 AND NOT deleted
		ORDER BY date DESC
	`

	rows, err := r.pool.Query(ctx, query, budgetID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transactions: %w", err)
	}

	return collectTransactions(rows)
}

// CategoryTransactions returns one category's transactions dated on or after
// since, excluding excludeID so a transaction is never compared against
// itself.
func (r *TransactionRepository) CategoryTransactions(ctx context.Context, budgetID, categoryID string, since time.Time, excludeID string) ([]budget.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE budget_id = $1 AND category_id = $2 AND date >= $3 AND id <> $4 AND NOT deleted
		ORDER BY date DESC
	`

	rows, err := r.pool.Query(ctx, query, budgetID, categoryID, since, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category transactions: %w", err)
	}

	return collectTransactions(rows)
}

// TransactionsByPayee returns one payee's transactions dated on or after
// since, newest first.
func (r *TransactionRepository) TransactionsByPayee(ctx context.Context, budgetID, payeeID string, since time.Time) ([]budget.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE budget_id = $1 AND payee_id = $2 AND date >= $3 AND NOT deleted
		ORDER BY date DESC
	`

	rows, err := r.pool.Query(ctx, query, budgetID, payeeID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query payee transactions: %w", err)
	}

	return collectTransactions(rows)
}

// FindMatchingTransaction searches for a posted transaction by payee with
// date in [from, to] and amount magnitude within tolerance of the expected
// amount's magnitude. Returns nil when nothing matches.
func (r *TransactionRepository) FindMatchingTransaction(ctx context.Context, budgetID, payeeID string, amount, tolerance int64, from, to time.Time) (*budget.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE budget_id = $1 AND payee_id = $2
		  AND date >= $3 AND date <= $4
		  AND abs(abs(amount) - abs($5::bigint)) <= $6
		  AND NOT deleted
		ORDER BY date DESC
		LIMIT 1
	`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, budgetID, payeeID, from, to, amount, tolerance))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to search transactions: %w", err)
	}

	return t, nil
}

// ListTransactions returns a budget's newest transactions up to limit.
func (r *TransactionRepository) ListTransactions(ctx context.Context, budgetID string, limit int) ([]budget.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE budget_id = $1 AND NOT deleted
		ORDER BY date DESC, id
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, budgetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	return collectTransactions(rows)
}

// TransactionsForMonth returns a budget's transactions dated within one
// calendar month, newest first. month is the first day of the month.
func (r *TransactionRepository) TransactionsForMonth(ctx context.Context, budgetID string, month time.Time) ([]budget.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE budget_id = $1 AND date >= $2 AND date < $3 AND NOT deleted
		ORDER BY date DESC, id
	`

	rows, err := r.pool.Query(ctx, query, budgetID, month, month.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to query month transactions: %w", err)
	}

	return collectTransactions(rows)
}

// LatestTransactionDate returns the newest non-deleted transaction date, or
// nil when the budget has none.
func (r *TransactionRepository) LatestTransactionDate(ctx context.Context, budgetID string) (*time.Time, error) {
	query := `
		SELECT MAX(date)
		FROM transactions
		WHERE budget_id = $1 AND NOT deleted
	`

	var latest *time.Time
	if err := r.pool.QueryRow(ctx, query, budgetID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to query latest transaction date: %w", err)
	}

	return latest, nil
}

// SpendingByCategory sums outflow magnitudes grouped by category over a
// trailing window, largest first.
func (r *TransactionRepository) SpendingByCategory(ctx context.Context, budgetID string, since time.Time) ([]budget.CategorySpending, error) {
	query := `
		SELECT category_id, category_name, SUM(-amount)::bigint, COUNT(*)
		FROM transactions
		WHERE budget_id = $1 AND date >= $2 AND amount < 0 AND NOT deleted
		GROUP BY category_id, category_name
		ORDER BY 3 DESC
	`

	rows, err := r.pool.Query(ctx, query, budgetID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query category spending: %w", err)
	}
	defer rows.Close()

	var spending []budget.CategorySpending
	for rows.Next() {
		var s budget.CategorySpending
		if err := rows.Scan(&s.CategoryID, &s.CategoryName, &s.TotalAmount, &s.TransactionCount); err != nil {
			return nil, fmt.Errorf("failed to scan category spending: %w", err)
		}
		spending = append(spending, s)
	}

	return spending, rows.Err()
}

// MonthlyTrend sums outflow magnitudes grouped by calendar month over a
// trailing window, oldest first.
func (r *TransactionRepository) MonthlyTrend(ctx context.Context, budgetID string, since time.Time) ([]budget.MonthlySpending, error) {
	query := `
		SELECT to_char(date, 'YYYY-MM'), SUM(-amount)::bigint
		FROM transactions
		WHERE budget_id = $1 AND date >= $2 AND amount < 0 AND NOT deleted
		GROUP BY 1
		ORDER BY 1
	`

	rows, err := r.pool.Query(ctx, query, budgetID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly trend: %w", err)
	}
	defer rows.Close()

	var trend []budget.MonthlySpending
	for rows.Next() {
		var m budget.MonthlySpending
		if err := rows.Scan(&m.Month, &m.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan monthly trend: %w", err)
		}
		trend = append(trend, m)
	}

	return trend, rows.Err()
}
