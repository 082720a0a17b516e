package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/budwatch/budwatch/internal/module/analytics"
	"github.com/budwatch/budwatch/internal/platform/alerts"
	"github.com/budwatch/budwatch/internal/platform/sync"
)

// Store composes the entity repositories into the single cache surface the
// sync orchestrator writes to and the detectors read from.
type Store struct {
	*BudgetRepository
	*AccountRepository
	*CategoryRepository
	*TransactionRepository
	*ScheduledTransactionRepository
	*CursorRepository
}

// NewStore creates the composed cache store over one connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		BudgetRepository:               NewBudgetRepository(pool),
		AccountRepository:              NewAccountRepository(pool),
		CategoryRepository:             NewCategoryRepository(pool),
		TransactionRepository:          NewTransactionRepository(pool),
		ScheduledTransactionRepository: NewScheduledTransactionRepository(pool),
		CursorRepository:               NewCursorRepository(pool),
	}
}

var (
	_ sync.Store      = (*Store)(nil)
	_ alerts.Reader   = (*Store)(nil)
	_ analytics.Store = (*Store)(nil)
)
