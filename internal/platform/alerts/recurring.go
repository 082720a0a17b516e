package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/budwatch/budwatch/internal/platform/budget"
	"github.com/budwatch/budwatch/pkg/money"
)

// RecurringConfig tunes both recurring sub-checks.
type RecurringConfig struct {
	TolerancePercent  float64
	ToleranceAbsolute int64 // milliunits
	DaysOverdueWarn   int
	DaysOverdueCrit   int
	LookbackDays      int
}

// DefaultRecurringConfig returns the stock tolerances.
func DefaultRecurringConfig() RecurringConfig {
	return RecurringConfig{
		TolerancePercent:  5.0,
		ToleranceAbsolute: 100,
		DaysOverdueWarn:   3,
		DaysOverdueCrit:   7,
		LookbackDays:      60,
	}
}

// RecurringChangeDetector runs two independent checks per active scheduled
// transaction: an amount-change check against recent postings by the same
// payee, and a missing check for overdue expected dates.
type RecurringChangeDetector struct {
	reader Reader
	config RecurringConfig
	now    func() time.Time
}

// NewRecurringChangeDetector creates the recurring-drift detector.
func NewRecurringChangeDetector(reader Reader, config RecurringConfig) *RecurringChangeDetector {
	return &RecurringChangeDetector{
		reader: reader,
		config: config,
		now:    time.Now,
	}
}

func (d *RecurringChangeDetector) AlertType() Type {
	return TypeRecurringChange
}

func (d *RecurringChangeDetector) Detect(ctx context.Context, budgetID string) ([]Alert, error) {
	scheduled, err := d.reader.ScheduledTransactions(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduled transactions: %w", err)
	}

	var alerts []Alert
	for i := range scheduled {
		sched := &scheduled[i]
		if sched.Deleted {
			continue
		}

		changed, err := d.checkAmountChange(ctx, budgetID, sched)
		if err != nil {
			return nil, err
		}
		if changed != nil {
			alerts = append(alerts, *changed)
		}

		missing, err := d.checkMissing(ctx, budgetID, sched)
		if err != nil {
			return nil, err
		}
		if missing != nil {
			alerts = append(alerts, *missing)
		}
	}

	return alerts, nil
}

// checkAmountChange flags the first recent posting by the same payee whose
// amount drifts from the expected one by more than both the absolute floor
// and the relative tolerance. Requiring both avoids false positives on small
// recurring charges (tiny absolute change, large percentage) and large ones
// (large absolute change, small percentage). First match wins: payees with
// several recent postings are judged by the earliest returned row, not the
// closest in time.
func (d *RecurringChangeDetector) checkAmountChange(ctx context.Context, budgetID string, sched *budget.ScheduledTransaction) (*Alert, error) {
	if sched.PayeeID == nil {
		return nil, nil
	}

	since := d.now().UTC().AddDate(0, 0, -d.config.LookbackDays)
	recent, err := d.reader.TransactionsByPayee(ctx, budgetID, *sched.PayeeID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load payee transactions: %w", err)
	}

	expected := money.Abs(sched.Amount)
	for i := range recent {
		actual := money.Abs(recent[i].Amount)
		diff := money.Abs(actual - expected)

		var diffPct float64
		if expected > 0 {
			diffPct = float64(diff) / float64(expected) * 100
		}

		if diff > d.config.ToleranceAbsolute && diffPct > d.config.TolerancePercent {
			a := d.buildAmountChangeAlert(sched, &recent[i], expected, actual, diff)
			return &a, nil
		}
	}

	return nil, nil
}

// checkMissing flags a scheduled transaction whose expected date has passed
// without a matching posting. A posting by the same payee within the amount
// tolerance and dated in [expected - 5 days, today] counts as posted, just
// not exactly on schedule.
func (d *RecurringChangeDetector) checkMissing(ctx context.Context, budgetID string, sched *budget.ScheduledTransaction) (*Alert, error) {
	today := d.now().UTC().Truncate(24 * time.Hour)
	expectedDate := sched.DateNext.UTC().Truncate(24 * time.Hour)

	if expectedDate.After(today) {
		return nil, nil
	}

	daysOverdue := int(today.Sub(expectedDate).Hours() / 24)
	if daysOverdue < d.config.DaysOverdueWarn {
		return nil, nil
	}

	if sched.PayeeID != nil {
		posted, err := d.reader.FindMatchingTransaction(ctx, budgetID, *sched.PayeeID,
			sched.Amount, d.config.ToleranceAbsolute, expectedDate.AddDate(0, 0, -5), today)
		if err != nil {
			return nil, fmt.Errorf("failed to search for posted transaction: %w", err)
		}
		if posted != nil {
			return nil, nil
		}
	}

	severity := SeverityWarning
	if daysOverdue >= d.config.DaysOverdueCrit {
		severity = SeverityCritical
	}

	a := d.buildMissingAlert(sched, expectedDate, daysOverdue, severity)
	return &a, nil
}

func (d *RecurringChangeDetector) buildAmountChangeAlert(sched *budget.ScheduledTransaction, txn *budget.Transaction, expected, actual, diff int64) Alert {
	payee := "Unknown"
	if sched.PayeeName != nil && *sched.PayeeName != "" {
		payee = *sched.PayeeName
	}

	direction := "increased"
	if actual < expected {
		direction = "decreased"
	}

	return Alert{
		BudgetID: sched.BudgetID,
		Type:     TypeRecurringChange,
		Severity: SeverityWarning,
		Title:    fmt.Sprintf("Recurring amount changed: %s", payee),
		Description: fmt.Sprintf("Expected %s, charged %s. Amount %s by %s.",
			money.Format(expected), money.Format(actual), direction, money.Format(diff)),
		RelatedEntityID:   strPtr(sched.ID),
		RelatedEntityType: strPtr(RelatedScheduledTransaction),
		Metadata: map[string]any{
			"scheduled_id":     sched.ID,
			"transaction_id":   txn.ID,
			"expected_amount":  expected,
			"actual_amount":    actual,
			"difference":       diff,
			"payee":            payee,
			"transaction_date": txn.Date.Format("2006-01-02"),
		},
	}
}

func (d *RecurringChangeDetector) buildMissingAlert(sched *budget.ScheduledTransaction, expectedDate time.Time, daysOverdue int, severity Severity) Alert {
	payee := "Unknown"
	if sched.PayeeName != nil && *sched.PayeeName != "" {
		payee = *sched.PayeeName
	}

	return Alert{
		BudgetID: sched.BudgetID,
		Type:     TypeRecurringMissing,
		Severity: severity,
		Title:    fmt.Sprintf("Missing recurring: %s", payee),
		Description: fmt.Sprintf("Expected %s on %s, now %d days overdue.",
			money.Format(money.Abs(sched.Amount)), expectedDate.Format("Jan 02"), daysOverdue),
		RelatedEntityID:   strPtr(sched.ID),
		RelatedEntityType: strPtr(RelatedScheduledTransaction),
		Metadata: map[string]any{
			"scheduled_id":    sched.ID,
			"expected_date":   expectedDate.Format("2006-01-02"),
			"days_overdue":    daysOverdue,
			"payee":           payee,
			"expected_amount": sched.Amount,
			"frequency":       sched.Frequency,
		},
	}
}

func (d *RecurringChangeDetector) ConfigSchema() map[string]ConfigField {
	return map[string]ConfigField{
		"amount_tolerance_percent": {
			Type: "float", Default: 5.0, Min: 0, Max: 20,
			Description: "Percentage variance allowed before alerting",
		},
		"amount_tolerance_absolute": {
			Type: "int", Default: 100, Min: 0, Max: 10000,
			Description: "Absolute variance in milliunits allowed",
		},
		"days_overdue_warning": {
			Type: "int", Default: 3, Min: 1, Max: 14,
			Description: "Days past due before warning",
		},
		"days_overdue_critical": {
			Type: "int", Default: 7, Min: 3, Max: 30,
			Description: "Days past due before critical alert",
		},
		"lookback_days": {
			Type: "int", Default: 60, Min: 30, Max: 180,
			Description: "Days to look back for amount comparison",
		},
	}
}
