package alerts

import "time"

// Severity is the alert severity level.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Type identifies which detector produced an alert.
type Type string

const (
	TypeUnusualSpending    Type = "unusual_spending"
	TypeBudgetOverspending Type = "budget_overspending"
	TypeRecurringChange    Type = "recurring_change"
	TypeRecurringMissing   Type = "recurring_missing"
)

// Alert is one detected anomaly. Created only by the Writer; afterwards it is
// only ever acknowledged or dismissed, never hard-deleted.
type Alert struct {
	ID                string         `json:"id"`
	BudgetID          string         `json:"budget_id"`
	Type              Type           `json:"alert_type"`
	Severity          Severity       `json:"severity"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	RelatedEntityID   *string        `json:"related_entity_id,omitempty"`
	RelatedEntityType *string        `json:"related_entity_type,omitempty"`

	// Metadata is an opaque detector-specific bag; consumers treat unknown
	// keys as ignorable.
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	Dismissed      bool       `json:"dismissed"`
}

// Related entity type tags stored alongside RelatedEntityID.
const (
	RelatedTransaction          = "transaction"
	RelatedCategory             = "category"
	RelatedScheduledTransaction = "scheduled_transaction"
)

func strPtr(s string) *string { return &s }
