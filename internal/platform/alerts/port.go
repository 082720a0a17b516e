package alerts

import (
	"context"
	"time"

	"github.com/budwatch/budwatch/internal/platform/budget"
)

// Reader is the read-only cache surface the detectors run against. Detectors
// never mutate the cache; tombstoned rows are already filtered out.
type Reader interface {
	// RecentTransactions returns posted transactions dated on or after since.
	RecentTransactions(ctx context.Context, budgetID string, since time.Time) ([]budget.Transaction, error)

	// CategoryTransactions returns one category's transactions dated on or
	// after since, excluding excludeID so a transaction is never compared
	// against itself.
	CategoryTransactions(ctx context.Context, budgetID, categoryID string, since time.Time, excludeID string) ([]budget.Transaction, error)

	// TransactionsByPayee returns one payee's transactions dated on or after
	// since.
	TransactionsByPayee(ctx context.Context, budgetID, payeeID string, since time.Time) ([]budget.Transaction, error)

	// FindMatchingTransaction searches for a posted transaction by payee
	// with date in [from, to] and |amount| within tolerance of |amount|.
	// Returns nil when nothing matches.
	FindMatchingTransaction(ctx context.Context, budgetID, payeeID string, amount, tolerance int64, from, to time.Time) (*budget.Transaction, error)

	// ScheduledTransactions returns the budget's active scheduled
	// transactions.
	ScheduledTransactions(ctx context.Context, budgetID string) ([]budget.ScheduledTransaction, error)

	// CurrentMonthCategories returns categories joined against the given
	// month's snapshot.
	CurrentMonthCategories(ctx context.Context, budgetID, month string) ([]budget.MonthCategory, error)
}

// Store is the alert persistence surface.
type Store interface {
	// ActiveAlertExists reports whether an un-dismissed alert already exists
	// for the same (type, related entity) pair.
	ActiveAlertExists(ctx context.Context, budgetID string, alertType Type, relatedEntityID string) (bool, error)

	SaveAlert(ctx context.Context, a *Alert) error
	ListAlerts(ctx context.Context, budgetID string, includeDismissed bool) ([]Alert, error)
	GetAlert(ctx context.Context, id string) (*Alert, error)
	AcknowledgeAlert(ctx context.Context, id string) error
	DismissAlert(ctx context.Context, id string) error
}
