package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/budwatch/budwatch/internal/platform/budget"
)

// =============================================================================
// Mock Reader
// =============================================================================

type MockReader struct {
	mock.Mock
}

func (m *MockReader) RecentTransactions(ctx context.Context, budgetID string, since time.Time) ([]budget.Transaction, error) {
	args := m.Called(ctx, budgetID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.Transaction), args.Error(1)
}

func (m *MockReader) CategoryTransactions(ctx context.Context, budgetID, categoryID string, since time.Time, excludeID string) ([]budget.Transaction, error) {
	args := m.Called(ctx, budgetID, categoryID, since, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.Transaction), args.Error(1)
}

func (m *MockReader) TransactionsByPayee(ctx context.Context, budgetID, payeeID string, since time.Time) ([]budget.Transaction, error) {
	args := m.Called(ctx, budgetID, payeeID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.Transaction), args.Error(1)
}

func (m *MockReader) FindMatchingTransaction(ctx context.Context, budgetID, payeeID string, amount, tolerance int64, from, to time.Time) (*budget.Transaction, error) {
	args := m.Called(ctx, budgetID, payeeID, amount, tolerance, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*budget.Transaction), args.Error(1)
}

func (m *MockReader) ScheduledTransactions(ctx context.Context, budgetID string) ([]budget.ScheduledTransaction, error) {
	args := m.Called(ctx, budgetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.ScheduledTransaction), args.Error(1)
}

func (m *MockReader) CurrentMonthCategories(ctx context.Context, budgetID, month string) ([]budget.MonthCategory, error) {
	args := m.Called(ctx, budgetID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.MonthCategory), args.Error(1)
}

var _ Reader = (*MockReader)(nil)

// =============================================================================
// Test helpers
// =============================================================================

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func outflow(id, categoryID string, amount int64, date time.Time) budget.Transaction {
	payee := "Coffee Shop"
	name := "Dining Out"
	return budget.Transaction{
		ID:           id,
		BudgetID:     "budget-1",
		Date:         date,
		Amount:       amount,
		PayeeName:    &payee,
		CategoryID:   &categoryID,
		CategoryName: &name,
	}
}

func historyOf(categoryID string, amounts ...int64) []budget.Transaction {
	txns := make([]budget.Transaction, 0, len(amounts))
	for i, a := range amounts {
		txns = append(txns, outflow("hist-"+string(rune('a'+i)), categoryID, -a, testNow.AddDate(0, 0, -30-i)))
	}
	return txns
}

// =============================================================================
// Modified Z-Score
// =============================================================================

func TestModifiedZScore_IdenticalHistoryScoresZero(t *testing.T) {
	// All-identical history: MAD is 0 and so is the stddev fallback, so
	// even an apparent 50% deviation scores 0. Accepted edge case.
	history := []float64{100, 100, 100, 100, 100}
	assert.Zero(t, modifiedZScore(history, 150))
}

func TestModifiedZScore_ExtremValueIsFarOverCriticalThreshold(t *testing.T) {
	history := []float64{10000, 11000, 9500, 10500, 10200}
	score := modifiedZScore(history, 50000)
	assert.Greater(t, score, 3.5)
}

func TestModifiedZScore_TypicalValueScoresLow(t *testing.T) {
	history := []float64{10000, 11000, 9500, 10500, 10200}
	score := modifiedZScore(history, 10300)
	assert.Less(t, score, 2.5)
	assert.Greater(t, score, -2.5)
}

func TestModifiedZScore_ZeroMADFallsBackToStddev(t *testing.T) {
	// Four identical values and one different: median 100, MAD 0, but the
	// stddev is nonzero so the fallback produces a useful score.
	history := []float64{100, 100, 100, 100, 200}
	score := modifiedZScore(history, 400)
	assert.NotZero(t, score)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 10200.0, median([]float64{10000, 11000, 9500, 10500, 10200}))
	assert.Equal(t, 15.0, median([]float64{10, 20}))
	assert.Zero(t, median(nil))
}

// =============================================================================
// Detector
// =============================================================================

func newUnusualDetector(reader Reader) *UnusualSpendingDetector {
	d := NewUnusualSpendingDetector(reader, DefaultUnusualSpendingConfig())
	d.now = func() time.Time { return testNow }
	return d
}

func TestUnusualSpending_CriticalOutlier(t *testing.T) {
	ctx := context.Background()
	reader := new(MockReader)

	txn := outflow("txn-new", "cat-1", -50_000, testNow.AddDate(0, 0, -2))
	reader.On("RecentTransactions", mock.Anything, "budget-1", mock.Anything).
		Return([]budget.Transaction{txn}, nil)
	reader.On("CategoryTransactions", mock.Anything, "budget-1", "cat-1", mock.Anything, "txn-new").
		Return(historyOf("cat-1", 10_000, 11_000, 9_500, 10_500, 10_200), nil)

	alerts, err := newUnusualDetector(reader).Detect(ctx, "budget-1")

	require.NoError(t, err)
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, TypeUnusualSpending, a.Type)
	assert.Equal(t, SeverityCritical, a.Severity)
	require.NotNil(t, a.RelatedEntityID)
	assert.Equal(t, "txn-new", *a.RelatedEntityID)
	assert.Equal(t, int64(10_200), a.Metadata["median_amount"])
	assert.Equal(t, 5, a.Metadata["sample_size"])
	assert.Equal(t, "Coffee Shop", a.Metadata["payee"])
}

func TestUnusualSpending_IdenticalHistoryProducesNoAlert(t *testing.T) {
	ctx := context.Background()
	reader := new(MockReader)

	txn := outflow("txn-new", "cat-1", -150, testNow.AddDate(0, 0, -1))
	reader.On("RecentTransactions", mock.Anything, "budget-1", mock.Anything).
		Return([]budget.Transaction{txn}, nil)
	reader.On("CategoryTransactions", mock.Anything, "budget-1", "cat-1", mock.Anything, "txn-new").
		Return(historyOf("cat-1", 100, 100, 100, 100, 100), nil)

	alerts, err := newUnusualDetector(reader).Detect(ctx, "budget-1")

	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestUnusualSpending_InsufficientHistoryIsNoOpinion(t *testing.T) {
	ctx := context.Background()
	reader := new(MockReader)

	txn := outflow("txn-new", "cat-1", -90_000, testNow.AddDate(0, 0, -1))
	reader.On("RecentTransactions", mock.Anything, "budget-1", mock.Anything).
		Return([]budget.Transaction{txn}, nil)
	reader.On("CategoryTransactions", mock.Anything, "budget-1", "cat-1", mock.Anything, "txn-new").
		Return(historyOf("cat-1", 10_000, 11_000, 9_500), nil)

	alerts, err := newUnusualDetector(reader).Detect(ctx, "budget-1")

	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestUnusualSpending_SkipsInflowsAndUncategorized(t *testing.T) {
	ctx := context.Background()
	reader := new(MockReader)

	inflow := outflow("txn-in", "cat-1", 500_000, testNow.AddDate(0, 0, -1))
	uncategorized := budget.Transaction{
		ID:       "txn-nocat",
		BudgetID: "budget-1",
		Date:     testNow.AddDate(0, 0, -1),
		Amount:   -500_000,
	}
	reader.On("RecentTransactions", mock.Anything, "budget-1", mock.Anything).
		Return([]budget.Transaction{inflow, uncategorized}, nil)

	alerts, err := newUnusualDetector(reader).Detect(ctx, "budget-1")

	require.NoError(t, err)
	assert.Empty(t, alerts)
	reader.AssertNotCalled(t, "CategoryTransactions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUnusualSpending_WarningBand(t *testing.T) {
	ctx := context.Background()
	reader := new(MockReader)

	// History median 10000, MAD 500: a value of 12200 scores
	// 0.6745*2200/500 ≈ 2.97, inside (2.5, 3.5].
	txn := outflow("txn-new", "cat-1", -12_200, testNow.AddDate(0, 0, -3))
	reader.On("RecentTransactions", mock.Anything, "budget-1", mock.Anything).
		Return([]budget.Transaction{txn}, nil)
	reader.On("CategoryTransactions", mock.Anything, "budget-1", "cat-1", mock.Anything, "txn-new").
		Return(historyOf("cat-1", 10_000, 10_500, 9_500, 10_800, 9_200), nil)

	alerts, err := newUnusualDetector(reader).Detect(ctx, "budget-1")

	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityWarning, alerts[0].Severity)
}
