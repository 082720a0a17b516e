package sync

import (
	"context"
	"time"

	"github.com/budwatch/budwatch/internal/platform/budget"
)

// RemoteAPI is the typed call surface over the remote budgeting API. Delta
// methods take an optional server-knowledge cursor (nil means full fetch)
// and return the new cursor alongside the changed records.
type RemoteAPI interface {
	GetBudgets(ctx context.Context) ([]budget.Budget, error)
	GetAccounts(ctx context.Context, budgetID string, cursor *int64) ([]budget.Account, int64, error)
	GetCategories(ctx context.Context, budgetID string, cursor *int64) ([]budget.CategoryGroup, int64, error)
	GetTransactions(ctx context.Context, budgetID string, cursor *int64) ([]budget.Transaction, int64, error)
	GetScheduledTransactions(ctx context.Context, budgetID string, cursor *int64) ([]budget.ScheduledTransaction, int64, error)

	// GetMonth returns one month's category snapshot; no delta semantics.
	GetMonth(ctx context.Context, budgetID, month string) ([]budget.MonthlyBudget, error)

	// Remaining reports requests left in the rate-limit window.
	Remaining() int
}

// Store is the write surface of the local cache used by sync. Every upsert
// overwrites all mutable fields by primary key; cursors are only advanced
// after the corresponding batch is durably written.
type Store interface {
	UpsertBudget(ctx context.Context, b *budget.Budget) error
	UpsertAccount(ctx context.Context, a *budget.Account) error
	UpsertCategory(ctx context.Context, c *budget.Category) error
	UpsertTransaction(ctx context.Context, t *budget.Transaction) error
	UpsertScheduledTransaction(ctx context.Context, s *budget.ScheduledTransaction) error
	UpsertMonthlyBudget(ctx context.Context, m *budget.MonthlyBudget) error

	// GetCursor returns nil when no cursor is stored (meaning full fetch).
	GetCursor(ctx context.Context, budgetID, entityType string) (*budget.SyncCursor, error)
	SetCursor(ctx context.Context, budgetID, entityType string, knowledge int64) error
	LastSyncedAt(ctx context.Context, budgetID string) (*time.Time, error)
}
