package analytics_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/budwatch/budwatch/internal/module/analytics"
	"github.com/budwatch/budwatch/internal/platform/budget"
	"github.com/budwatch/budwatch/pkg/logger"
)

// ============================================================================
// Mocks
// ============================================================================

type MockStore struct {
	mock.Mock
}

func (m *MockStore) SpendingByCategory(ctx context.Context, budgetID string, since time.Time) ([]budget.CategorySpending, error) {
	args := m.Called(ctx, budgetID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.CategorySpending), args.Error(1)
}

func (m *MockStore) MonthlyTrend(ctx context.Context, budgetID string, since time.Time) ([]budget.MonthlySpending, error) {
	args := m.Called(ctx, budgetID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.MonthlySpending), args.Error(1)
}

func (m *MockStore) CurrentMonthCategories(ctx context.Context, budgetID, month string) ([]budget.MonthCategory, error) {
	args := m.Called(ctx, budgetID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.MonthCategory), args.Error(1)
}

func (m *MockStore) ListTransactions(ctx context.Context, budgetID string, limit int) ([]budget.Transaction, error) {
	args := m.Called(ctx, budgetID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.Transaction), args.Error(1)
}

func (m *MockStore) TransactionsForMonth(ctx context.Context, budgetID string, month time.Time) ([]budget.Transaction, error) {
	args := m.Called(ctx, budgetID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.Transaction), args.Error(1)
}

func (m *MockStore) LatestTransactionDate(ctx context.Context, budgetID string) (*time.Time, error) {
	args := m.Called(ctx, budgetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockStore) AvailableMonths(ctx context.Context, budgetID string) ([]string, error) {
	args := m.Called(ctx, budgetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) ListAccounts(ctx context.Context, budgetID string) ([]budget.Account, error) {
	args := m.Called(ctx, budgetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.Account), args.Error(1)
}

// memCache is an in-memory stand-in for the redis aggregate cache.
type memCache struct {
	entries map[string][]byte
	getErr  error
	setErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, budgetID, name string, dest any) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.entries[budgetID+":"+name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, budgetID, name string, value any) error {
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[budgetID+":"+name] = raw
	return nil
}

func newTestService(store *MockStore, cache analytics.Cache) *analytics.Service {
	return analytics.NewService(store, cache, logger.New("test", os.Stdout))
}

// ============================================================================
// Aggregate caching
// ============================================================================

func TestSpendingByCategory_CachesSecondRead(t *testing.T) {
	store := new(MockStore)
	cache := newMemCache()
	svc := newTestService(store, cache)

	name := "Groceries"
	rows := []budget.CategorySpending{
		{CategoryID: strp("cat-1"), CategoryName: &name, TotalAmount: 125000, TransactionCount: 4},
	}
	store.On("SpendingByCategory", mock.Anything, "budget-1", mock.Anything).Return(rows, nil).Once()

	got, err := svc.SpendingByCategory(context.Background(), "budget-1", 30)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(125000), got[0].TotalAmount)

	// Second call is served from the cache, the store is not hit again.
	got, err = svc.SpendingByCategory(context.Background(), "budget-1", 30)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Groceries", *got[0].CategoryName)

	store.AssertExpectations(t)
}

func TestSpendingByCategory_DifferentWindowsUseDifferentKeys(t *testing.T) {
	store := new(MockStore)
	cache := newMemCache()
	svc := newTestService(store, cache)

	store.On("SpendingByCategory", mock.Anything, "budget-1", mock.Anything).
		Return([]budget.CategorySpending{}, nil).Twice()

	_, err := svc.SpendingByCategory(context.Background(), "budget-1", 30)
	require.NoError(t, err)
	_, err = svc.SpendingByCategory(context.Background(), "budget-1", 90)
	require.NoError(t, err)

	store.AssertExpectations(t)
}

func TestSpendingByCategory_CacheFailureFallsBackToStore(t *testing.T) {
	store := new(MockStore)
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	svc := newTestService(store, cache)

	store.On("SpendingByCategory", mock.Anything, "budget-1", mock.Anything).
		Return([]budget.CategorySpending{}, nil)

	_, err := svc.SpendingByCategory(context.Background(), "budget-1", 30)
	require.NoError(t, err)

	store.AssertExpectations(t)
}

func TestSpendingByCategory_StoreError(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(store, newMemCache())

	store.On("SpendingByCategory", mock.Anything, "budget-1", mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := svc.SpendingByCategory(context.Background(), "budget-1", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category spending")
}

func TestMonthlyTrend_CachesSecondRead(t *testing.T) {
	store := new(MockStore)
	cache := newMemCache()
	svc := newTestService(store, cache)

	rows := []budget.MonthlySpending{
		{Month: "2026-07", TotalAmount: 980000},
		{Month: "2026-08", TotalAmount: 1040000},
	}
	store.On("MonthlyTrend", mock.Anything, "budget-1", mock.Anything).Return(rows, nil).Once()

	got, err := svc.MonthlyTrend(context.Background(), "budget-1", 6)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = svc.MonthlyTrend(context.Background(), "budget-1", 6)
	require.NoError(t, err)
	assert.Equal(t, "2026-08", got[1].Month)

	store.AssertExpectations(t)
}

// ============================================================================
// Month overview
// ============================================================================

func TestMonthOverview_TotalsSkipHiddenCategories(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(store, newMemCache())

	cats := []budget.MonthCategory{
		{
			Category:      budget.Category{ID: "cat-1", Name: "Groceries"},
			MonthBudgeted: i64p(500000),
			MonthActivity: i64p(-420000),
		},
		{
			Category:      budget.Category{ID: "cat-2", Name: "Rent", Budgeted: 1500000, Activity: -1500000},
			MonthBudgeted: nil,
		},
		{
			Category:      budget.Category{ID: "cat-3", Name: "Old Stuff", Hidden: true, Budgeted: 999999, Activity: -999999},
			MonthBudgeted: nil,
		},
	}
	store.On("CurrentMonthCategories", mock.Anything, "budget-1", "2026-08-01").Return(cats, nil)

	overview, err := svc.MonthOverview(context.Background(), "budget-1", "2026-08")
	require.NoError(t, err)

	assert.Equal(t, "2026-08-01", overview.Month)
	assert.Equal(t, int64(2000000), overview.Budgeted)
	assert.Equal(t, int64(1920000), overview.Spent)
	assert.Len(t, overview.Categories, 3)
}

func TestMonthOverview_InflowActivityDoesNotCountAsSpending(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(store, newMemCache())

	cats := []budget.MonthCategory{
		{
			Category:      budget.Category{ID: "cat-1", Name: "Refunds"},
			MonthBudgeted: i64p(0),
			MonthActivity: i64p(30000),
		},
	}
	store.On("CurrentMonthCategories", mock.Anything, "budget-1", mock.Anything).Return(cats, nil)

	overview, err := svc.MonthOverview(context.Background(), "budget-1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), overview.Spent)
}

func TestMonthOverview_DefaultsToCurrentMonth(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(store, newMemCache())

	store.On("CurrentMonthCategories", mock.Anything, "budget-1", budget.CurrentMonth()).
		Return([]budget.MonthCategory{}, nil)

	overview, err := svc.MonthOverview(context.Background(), "budget-1", "")
	require.NoError(t, err)
	assert.Equal(t, budget.CurrentMonth(), overview.Month)

	store.AssertExpectations(t)
}

func TestMonthOverview_RejectsMalformedMonth(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(store, newMemCache())

	_, err := svc.MonthOverview(context.Background(), "budget-1", "August 2026")
	require.ErrorIs(t, err, budget.ErrInvalidMonth)

	store.AssertNotCalled(t, "CurrentMonthCategories", mock.Anything, mock.Anything, mock.Anything)
}

func TestMonths_CombinesSnapshotsAndFreshness(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(store, newMemCache())

	latest := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	store.On("AvailableMonths", mock.Anything, "budget-1").
		Return([]string{"2026-08-01", "2026-07-01"}, nil)
	store.On("LatestTransactionDate", mock.Anything, "budget-1").Return(&latest, nil)

	summary, err := svc.Months(context.Background(), "budget-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-01", "2026-07-01"}, summary.Months)
	require.NotNil(t, summary.LatestTransaction)
	assert.Equal(t, latest, *summary.LatestTransaction)
}

func TestMonthTransactions_ParsesMonth(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(store, newMemCache())

	first := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store.On("TransactionsForMonth", mock.Anything, "budget-1", first).
		Return([]budget.Transaction{{ID: "txn-1"}}, nil)

	txns, err := svc.MonthTransactions(context.Background(), "budget-1", "2026-08")
	require.NoError(t, err)
	require.Len(t, txns, 1)

	_, err = svc.MonthTransactions(context.Background(), "budget-1", "last month")
	require.ErrorIs(t, err, budget.ErrInvalidMonth)

	store.AssertExpectations(t)
}

// ============================================================================
// Row-level reads
// ============================================================================

func TestRecentTransactions_ClampsLimit(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(store, newMemCache())

	store.On("ListTransactions", mock.Anything, "budget-1", 100).
		Return([]budget.Transaction{}, nil).Twice()
	store.On("ListTransactions", mock.Anything, "budget-1", 50).
		Return([]budget.Transaction{}, nil).Once()

	_, err := svc.RecentTransactions(context.Background(), "budget-1", 0)
	require.NoError(t, err)
	_, err = svc.RecentTransactions(context.Background(), "budget-1", 10000)
	require.NoError(t, err)
	_, err = svc.RecentTransactions(context.Background(), "budget-1", 50)
	require.NoError(t, err)

	store.AssertExpectations(t)
}

func TestAccounts_PassesThrough(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(store, newMemCache())

	store.On("ListAccounts", mock.Anything, "budget-1").
		Return([]budget.Account{{ID: "acc-1", Name: "Checking"}}, nil)

	accounts, err := svc.Accounts(context.Background(), "budget-1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Checking", accounts[0].Name)
}

// ============================================================================
// Helpers
// ============================================================================

func strp(s string) *string { return &s }

func i64p(v int64) *int64 { return &v }
