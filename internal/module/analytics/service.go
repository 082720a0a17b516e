package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/budwatch/budwatch/internal/platform/budget"
	"github.com/budwatch/budwatch/pkg/logger"
)

// Store is the cache query surface analytics reads from.
type Store interface {
	SpendingByCategory(ctx context.Context, budgetID string, since time.Time) ([]budget.CategorySpending, error)
	MonthlyTrend(ctx context.Context, budgetID string, since time.Time) ([]budget.MonthlySpending, error)
	CurrentMonthCategories(ctx context.Context, budgetID, month string) ([]budget.MonthCategory, error)
	ListTransactions(ctx context.Context, budgetID string, limit int) ([]budget.Transaction, error)
	TransactionsForMonth(ctx context.Context, budgetID string, month time.Time) ([]budget.Transaction, error)
	LatestTransactionDate(ctx context.Context, budgetID string) (*time.Time, error)
	AvailableMonths(ctx context.Context, budgetID string) ([]string, error)
	ListAccounts(ctx context.Context, budgetID string) ([]budget.Account, error)
}

// Cache is the aggregate cache in front of the store. Aggregates only;
// row-level reads always go to the store.
type Cache interface {
	Get(ctx context.Context, budgetID, name string, dest any) (bool, error)
	Set(ctx context.Context, budgetID, name string, value any) error
}

// MonthsSummary lists the months with synced data and the newest
// transaction date seen for the budget.
type MonthsSummary struct {
	Months            []string   `json:"months"`
	LatestTransaction *time.Time `json:"latest_transaction,omitempty"`
}

// MonthOverview summarizes one month's categories.
type MonthOverview struct {
	Month      string                 `json:"month"`
	Budgeted   int64                  `json:"budgeted"`
	Spent      int64                  `json:"spent"`
	Categories []budget.MonthCategory `json:"categories"`
}

// Service is the read-only analytics surface. Aggregates are read through
// the cache; a cache failure degrades to a direct store read.
type Service struct {
	store  Store
	cache  Cache
	logger *logger.Logger
}

// NewService creates the analytics service.
func NewService(store Store, cache Cache, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: log.WithField("service", "analytics"),
	}
}

// SpendingByCategory returns outflow totals grouped by category over the
// trailing number of days.
func (s *Service) SpendingByCategory(ctx context.Context, budgetID string, days int) ([]budget.CategorySpending, error) {
	key := fmt.Sprintf("spending_by_category:%dd", days)

	var cached []budget.CategorySpending
	if hit := s.cacheGet(ctx, budgetID, key, &cached); hit {
		return cached, nil
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	spending, err := s.store.SpendingByCategory(ctx, budgetID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load category spending: %w", err)
	}

	s.cacheSet(ctx, budgetID, key, spending)
	return spending, nil
}

// MonthlyTrend returns outflow totals grouped by calendar month over the
// trailing number of months.
func (s *Service) MonthlyTrend(ctx context.Context, budgetID string, months int) ([]budget.MonthlySpending, error) {
	key := fmt.Sprintf("monthly_trend:%dm", months)

	var cached []budget.MonthlySpending
	if hit := s.cacheGet(ctx, budgetID, key, &cached); hit {
		return cached, nil
	}

	since := time.Now().UTC().AddDate(0, -months, 0)
	trend, err := s.store.MonthlyTrend(ctx, budgetID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly trend: %w", err)
	}

	s.cacheSet(ctx, budgetID, key, trend)
	return trend, nil
}

// MonthOverview returns one month's category view with totals. Defaults to
// the current month when month is empty.
func (s *Service) MonthOverview(ctx context.Context, budgetID, month string) (*MonthOverview, error) {
	if month == "" {
		month = budget.CurrentMonth()
	} else {
		parsed, err := budget.ParseMonth(month)
		if err != nil {
			return nil, budget.ErrInvalidMonth
		}
		month = parsed.Format(budget.MonthLayout)
	}

	categories, err := s.store.CurrentMonthCategories(ctx, budgetID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to load month categories: %w", err)
	}

	overview := &MonthOverview{Month: month, Categories: categories}
	for i := range categories {
		cat := &categories[i]
		if cat.Hidden {
			continue
		}
		overview.Budgeted += cat.EffectiveBudgeted()
		if activity := cat.EffectiveActivity(); activity < 0 {
			overview.Spent += -activity
		}
	}

	return overview, nil
}

// Months returns the months with synced snapshots plus the latest
// transaction date, so a caller can tell how fresh the cache is.
func (s *Service) Months(ctx context.Context, budgetID string) (*MonthsSummary, error) {
	months, err := s.store.AvailableMonths(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load available months: %w", err)
	}

	latest, err := s.store.LatestTransactionDate(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest transaction date: %w", err)
	}

	return &MonthsSummary{Months: months, LatestTransaction: latest}, nil
}

// MonthTransactions returns the transactions dated within one calendar month.
func (s *Service) MonthTransactions(ctx context.Context, budgetID, month string) ([]budget.Transaction, error) {
	parsed, err := budget.ParseMonth(month)
	if err != nil {
		return nil, budget.ErrInvalidMonth
	}
	return s.store.TransactionsForMonth(ctx, budgetID, parsed)
}

// RecentTransactions returns a budget's newest transactions up to limit.
func (s *Service) RecentTransactions(ctx context.Context, budgetID string, limit int) ([]budget.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListTransactions(ctx, budgetID, limit)
}

// Accounts returns a budget's accounts.
func (s *Service) Accounts(ctx context.Context, budgetID string) ([]budget.Account, error) {
	return s.store.ListAccounts(ctx, budgetID)
}

func (s *Service) cacheGet(ctx context.Context, budgetID, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, budgetID, key, dest)
	if err != nil {
		s.logger.WithError(err).Warn("cache read failed, falling back to store", "key", key)
		return false
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, budgetID, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, budgetID, key, value); err != nil {
		s.logger.WithError(err).Warn("cache write failed", "key", key)
	}
}
