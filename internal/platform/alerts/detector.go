package alerts

import (
	"context"
	"fmt"

	"github.com/budwatch/budwatch/pkg/logger"
)

// Detector is one detection rule. Implementations read from the cache only
// and return candidate alerts; persistence and deduplication belong to the
// Writer.
type Detector interface {
	// AlertType is the primary alert type this detector produces.
	AlertType() Type

	// Detect runs the rule against one budget's cached data.
	Detect(ctx context.Context, budgetID string) ([]Alert, error)

	// ConfigSchema describes the detector's tunables for an external
	// settings surface. The engine does not interpret it.
	ConfigSchema() map[string]ConfigField
}

// ConfigField is one self-describing detector tunable.
type ConfigField struct {
	Type        string  `json:"type"`
	Default     any     `json:"default"`
	Min         float64 `json:"min,omitempty"`
	Max         float64 `json:"max,omitempty"`
	Description string  `json:"description"`
}

// NewDetectors constructs the full detector set. The set is closed and
// compile-time known; adding a detector is a one-line change here.
func NewDetectors(reader Reader, config Config) []Detector {
	return []Detector{
		NewUnusualSpendingDetector(reader, config.UnusualSpending),
		NewBudgetOverspendingDetector(reader, config.BudgetOverspending),
		NewRecurringChangeDetector(reader, config.Recurring),
	}
}

// Config bundles every detector's tunables.
type Config struct {
	UnusualSpending    UnusualSpendingConfig
	BudgetOverspending BudgetOverspendingConfig
	Recurring          RecurringConfig
}

// DefaultConfig returns every detector's defaults.
func DefaultConfig() Config {
	return Config{
		UnusualSpending:    DefaultUnusualSpendingConfig(),
		BudgetOverspending: DefaultBudgetOverspendingConfig(),
		Recurring:          DefaultRecurringConfig(),
	}
}

// RunResult reports one detection cycle.
type RunResult struct {
	Detected int      `json:"detected"`
	Saved    int      `json:"saved"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Engine runs every detector against a budget and persists the results
// through the writer. One detector's failure is logged and recorded but never
// blocks the others.
type Engine struct {
	detectors []Detector
	writer    *Writer
	logger    *logger.Logger
}

// NewEngine creates a detection engine over an explicit detector list.
func NewEngine(detectors []Detector, writer *Writer, log *logger.Logger) *Engine {
	return &Engine{
		detectors: detectors,
		writer:    writer,
		logger:    log.WithField("service", "alerts"),
	}
}

// RunAll runs every detector for one budget in order and persists the
// combined results. Detector failures land in the result's error list.
func (e *Engine) RunAll(ctx context.Context, budgetID string) *RunResult {
	result := &RunResult{}

	for _, d := range e.detectors {
		detected, err := d.Detect(ctx, budgetID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", d.AlertType(), err))
			e.logger.Error("detector failed", "alert_type", string(d.AlertType()), "error", err)
			continue
		}
		result.Detected += len(detected)

		for i := range detected {
			saved, err := e.writer.Write(ctx, &detected[i])
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", d.AlertType(), err))
				continue
			}
			if saved {
				result.Saved++
			} else {
				result.Skipped++
			}
		}
	}

	e.logger.Info("detection cycle finished",
		"budget_id", budgetID,
		"detected", result.Detected,
		"saved", result.Saved,
		"skipped", result.Skipped,
		"error_count", len(result.Errors))

	return result
}

// Schemas returns every detector's config schema keyed by alert type.
func (e *Engine) Schemas() map[Type]map[string]ConfigField {
	schemas := make(map[Type]map[string]ConfigField, len(e.detectors))
	for _, d := range e.detectors {
		schemas[d.AlertType()] = d.ConfigSchema()
	}
	return schemas
}
