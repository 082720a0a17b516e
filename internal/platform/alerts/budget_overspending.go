package alerts

import (
	"context"
	"fmt"
	"math"

	"github.com/budwatch/budwatch/internal/platform/budget"
	"github.com/budwatch/budwatch/pkg/money"
)

// BudgetOverspendingConfig tunes the threshold detector.
type BudgetOverspendingConfig struct {
	ApproachingThreshold float64
	AtLimitThreshold     float64

	// AlertZeroBudgetSpend emits a warning when spending occurs in a
	// category with no budget assigned; zero-budget categories are
	// otherwise skipped silently.
	AlertZeroBudgetSpend bool
}

// DefaultBudgetOverspendingConfig returns the stock thresholds.
func DefaultBudgetOverspendingConfig() BudgetOverspendingConfig {
	return BudgetOverspendingConfig{
		ApproachingThreshold: 0.90,
		AtLimitThreshold:     1.00,
		AlertZeroBudgetSpend: true,
	}
}

// BudgetOverspendingDetector compares each category's current-month spending
// against its budgeted amount. Month-scoped figures win over lifetime totals
// when the month snapshot exists.
type BudgetOverspendingDetector struct {
	reader Reader
	config BudgetOverspendingConfig
}

// NewBudgetOverspendingDetector creates the threshold detector.
func NewBudgetOverspendingDetector(reader Reader, config BudgetOverspendingConfig) *BudgetOverspendingDetector {
	return &BudgetOverspendingDetector{reader: reader, config: config}
}

func (d *BudgetOverspendingDetector) AlertType() Type {
	return TypeBudgetOverspending
}

func (d *BudgetOverspendingDetector) Detect(ctx context.Context, budgetID string) ([]Alert, error) {
	categories, err := d.reader.CurrentMonthCategories(ctx, budgetID, budget.CurrentMonth())
	if err != nil {
		return nil, fmt.Errorf("failed to load current month categories: %w", err)
	}

	var alerts []Alert
	for i := range categories {
		cat := &categories[i]
		if cat.Hidden {
			continue
		}

		budgeted := cat.EffectiveBudgeted()
		activity := cat.EffectiveActivity()

		// Activity is negative for spending.
		var spent int64
		if activity < 0 {
			spent = -activity
		}

		if budgeted == 0 {
			if spent > 0 && d.config.AlertZeroBudgetSpend {
				alerts = append(alerts, d.buildNoBudgetAlert(cat, spent))
			}
			continue
		}

		ratio := float64(spent) / float64(budgeted)

		switch {
		case ratio > d.config.AtLimitThreshold:
			alerts = append(alerts, d.buildAlert(cat, spent, budgeted, ratio, SeverityCritical, "overspent"))
		case ratio >= d.config.ApproachingThreshold:
			alerts = append(alerts, d.buildAlert(cat, spent, budgeted, ratio, SeverityInfo, "approaching"))
		}
	}

	return alerts, nil
}

func (d *BudgetOverspendingDetector) buildAlert(cat *budget.MonthCategory, spent, budgeted int64, ratio float64, severity Severity, status string) Alert {
	groupName := ""
	if cat.GroupName != nil {
		groupName = *cat.GroupName
	}

	var title, description string
	if status == "overspent" {
		overage := spent - budgeted
		title = fmt.Sprintf("%s is overspent", cat.Name)
		description = fmt.Sprintf("Spent %s of %s budget (%s). Over by %s.",
			money.Format(spent), money.Format(budgeted), money.FormatPercent(ratio, 0), money.Format(overage))
	} else {
		remaining := budgeted - spent
		title = fmt.Sprintf("%s approaching budget limit", cat.Name)
		description = fmt.Sprintf("Spent %s of %s budget (%s). %s remaining.",
			money.Format(spent), money.Format(budgeted), money.FormatPercent(ratio, 0), money.Format(remaining))
	}

	return Alert{
		BudgetID:          cat.BudgetID,
		Type:              TypeBudgetOverspending,
		Severity:          severity,
		Title:             title,
		Description:       description,
		RelatedEntityID:   strPtr(cat.ID),
		RelatedEntityType: strPtr(RelatedCategory),
		Metadata: map[string]any{
			"category_name":  cat.Name,
			"category_group": groupName,
			"spent":          spent,
			"budgeted":       budgeted,
			"ratio":          math.Round(ratio*1000) / 1000,
			"balance":        cat.Balance,
			"status":         status,
		},
	}
}

func (d *BudgetOverspendingDetector) buildNoBudgetAlert(cat *budget.MonthCategory, spent int64) Alert {
	groupName := ""
	if cat.GroupName != nil {
		groupName = *cat.GroupName
	}

	return Alert{
		BudgetID:          cat.BudgetID,
		Type:              TypeBudgetOverspending,
		Severity:          SeverityWarning,
		Title:             fmt.Sprintf("Spending without budget: %s", cat.Name),
		Description:       fmt.Sprintf("Spent %s in category with no budget assigned.", money.Format(spent)),
		RelatedEntityID:   strPtr(cat.ID),
		RelatedEntityType: strPtr(RelatedCategory),
		Metadata: map[string]any{
			"category_name":  cat.Name,
			"category_group": groupName,
			"spent":          spent,
			"budgeted":       int64(0),
			"status":         "no_budget",
		},
	}
}

func (d *BudgetOverspendingDetector) ConfigSchema() map[string]ConfigField {
	return map[string]ConfigField{
		"approaching_threshold": {
			Type: "float", Default: 0.90, Min: 0.5, Max: 0.99,
			Description: "Fraction of budget that triggers an approaching alert",
		},
		"at_limit_threshold": {
			Type: "float", Default: 1.00, Min: 0.9, Max: 1.5,
			Description: "Fraction of budget that triggers an overspent alert",
		},
		"alert_zero_budget_spending": {
			Type: "bool", Default: true,
			Description: "Alert when spending occurs in categories without budget",
		},
	}
}
