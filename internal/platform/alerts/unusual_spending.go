package alerts

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/budwatch/budwatch/internal/platform/budget"
	"github.com/budwatch/budwatch/pkg/money"
)

// UnusualSpendingConfig tunes the outlier detector.
type UnusualSpendingConfig struct {
	WarningThreshold  float64
	CriticalThreshold float64
	MinHistory        int
	LookbackMonths    int
	RecentDays        int
}

// DefaultUnusualSpendingConfig returns the stock thresholds.
func DefaultUnusualSpendingConfig() UnusualSpendingConfig {
	return UnusualSpendingConfig{
		WarningThreshold:  2.5,
		CriticalThreshold: 3.5,
		MinHistory:        5,
		LookbackMonths:    6,
		RecentDays:        30,
	}
}

// UnusualSpendingDetector flags outflow transactions that are statistical
// outliers against their category's history, using the Modified Z-Score:
//
//	MZ = 0.6745 * (x - median) / MAD
//
// Median and MAD are used instead of mean and standard deviation because the
// history itself is unscreened raw data: an existing outlier would distort a
// mean-based score but barely moves the median.
type UnusualSpendingDetector struct {
	reader Reader
	config UnusualSpendingConfig
	now    func() time.Time
}

// NewUnusualSpendingDetector creates the outlier detector.
func NewUnusualSpendingDetector(reader Reader, config UnusualSpendingConfig) *UnusualSpendingDetector {
	return &UnusualSpendingDetector{
		reader: reader,
		config: config,
		now:    time.Now,
	}
}

func (d *UnusualSpendingDetector) AlertType() Type {
	return TypeUnusualSpending
}

func (d *UnusualSpendingDetector) Detect(ctx context.Context, budgetID string) ([]Alert, error) {
	now := d.now().UTC()
	recentSince := now.AddDate(0, 0, -d.config.RecentDays)
	historySince := now.AddDate(0, -d.config.LookbackMonths, 0)

	recent, err := d.reader.RecentTransactions(ctx, budgetID, recentSince)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent transactions: %w", err)
	}

	var alerts []Alert
	for i := range recent {
		txn := &recent[i]
		if txn.CategoryID == nil || !txn.IsOutflow() {
			continue
		}

		history, err := d.reader.CategoryTransactions(ctx, budgetID, *txn.CategoryID, historySince, txn.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load category history: %w", err)
		}

		// Insufficient history is "no opinion", not an error.
		if len(history) < d.config.MinHistory {
			continue
		}

		histAmounts := make([]float64, 0, len(history))
		for j := range history {
			histAmounts = append(histAmounts, float64(money.Abs(history[j].Amount)))
		}
		amount := float64(money.Abs(txn.Amount))

		score := modifiedZScore(histAmounts, amount)

		switch {
		case math.Abs(score) > d.config.CriticalThreshold:
			alerts = append(alerts, d.buildAlert(txn, score, SeverityCritical, histAmounts))
		case math.Abs(score) > d.config.WarningThreshold:
			alerts = append(alerts, d.buildAlert(txn, score, SeverityWarning, histAmounts))
		}
	}

	return alerts, nil
}

func (d *UnusualSpendingDetector) buildAlert(txn *budget.Transaction, score float64, severity Severity, histAmounts []float64) Alert {
	payee := "Unknown"
	if txn.PayeeName != nil && *txn.PayeeName != "" {
		payee = *txn.PayeeName
	}
	category := "Uncategorized"
	if txn.CategoryName != nil && *txn.CategoryName != "" {
		category = *txn.CategoryName
	}

	direction := "higher"
	if score < 0 {
		direction = "lower"
	}

	medianAmount := int64(median(histAmounts))

	return Alert{
		BudgetID: txn.BudgetID,
		Type:     TypeUnusualSpending,
		Severity: severity,
		Title:    fmt.Sprintf("Unusual spending in %s", category),
		Description: fmt.Sprintf("Transaction of %s at %s is significantly %s than typical (median: %s).",
			money.Format(money.Abs(txn.Amount)), payee, direction, money.Format(medianAmount)),
		RelatedEntityID:   strPtr(txn.ID),
		RelatedEntityType: strPtr(RelatedTransaction),
		Metadata: map[string]any{
			"amount":        txn.Amount,
			"mz_score":      math.Round(score*100) / 100,
			"payee":         payee,
			"category":      category,
			"category_id":   *txn.CategoryID,
			"date":          txn.Date.Format("2006-01-02"),
			"median_amount": medianAmount,
			"sample_size":   len(histAmounts),
		},
	}
}

// modifiedZScore scores a new value against a history using median and MAD.
// A zero MAD (all-identical history) falls back to the standard deviation; a
// zero deviation as well yields score 0.
func modifiedZScore(history []float64, value float64) float64 {
	if len(history) < 2 {
		return 0
	}

	med := median(history)
	deviations := make([]float64, len(history))
	for i, v := range history {
		deviations[i] = math.Abs(v - med)
	}
	mad := median(deviations)

	if mad == 0 {
		sd := stddev(history)
		if sd == 0 {
			return 0
		}
		return (value - med) / sd
	}

	// 0.6745 scales MAD to be comparable with a standard deviation for
	// normally distributed data.
	return 0.6745 * (value - med) / mad
}

// median returns the middle value of the set; the input is not modified.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / n)
}

func (d *UnusualSpendingDetector) ConfigSchema() map[string]ConfigField {
	return map[string]ConfigField{
		"warning_threshold": {
			Type: "float", Default: 2.5, Min: 1.0, Max: 5.0,
			Description: "Modified Z-Score threshold for warning alerts",
		},
		"critical_threshold": {
			Type: "float", Default: 3.5, Min: 2.0, Max: 6.0,
			Description: "Modified Z-Score threshold for critical alerts",
		},
		"min_history_transactions": {
			Type: "int", Default: 5, Min: 3, Max: 20,
			Description: "Minimum historical transactions required for comparison",
		},
		"lookback_months": {
			Type: "int", Default: 6, Min: 1, Max: 24,
			Description: "How many months of history to analyze",
		},
		"recent_days": {
			Type: "int", Default: 30, Min: 7, Max: 90,
			Description: "Days to look back for recent transactions",
		},
	}
}
