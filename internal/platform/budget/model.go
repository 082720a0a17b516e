package budget

import "time"

// Entity types tracked by the sync cursor table. Each matches one remote
// delta endpoint.
const (
	EntityAccounts              = "accounts"
	EntityCategories            = "categories"
	EntityTransactions          = "transactions"
	EntityScheduledTransactions = "scheduled_transactions"
)

// SyncEntities lists the cursor-tracked entity types in the order they are
// synced.
var SyncEntities = []string{
	EntityAccounts,
	EntityCategories,
	EntityTransactions,
	EntityScheduledTransactions,
}

// Budget is one remote budget. Created and updated by sync, never deleted
// locally.
type Budget struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LastModifiedOn *string   `json:"last_modified_on,omitempty"`
	FirstMonth     *string   `json:"first_month,omitempty"`
	LastMonth      *string   `json:"last_month,omitempty"`
	CurrencyFormat *string   `json:"currency_format,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Account is a bank or tracking account within a budget. Upserted wholesale
// each sync.
type Account struct {
	ID               string `json:"id"`
	BudgetID         string `json:"budget_id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	OnBudget         bool   `json:"on_budget"`
	Closed           bool   `json:"closed"`
	Balance          int64  `json:"balance"` // milliunits
	ClearedBalance   int64  `json:"cleared_balance"`
	UnclearedBalance int64  `json:"uncleared_balance"`
}

// Category carries lifetime budgeted/activity/balance totals. Month-scoped
// figures live in MonthlyBudget.
type Category struct {
	ID              string  `json:"id"`
	BudgetID        string  `json:"budget_id"`
	GroupID         *string `json:"group_id,omitempty"`
	GroupName       *string `json:"group_name,omitempty"`
	Name            string  `json:"name"`
	Hidden          bool    `json:"hidden"`
	Budgeted        int64   `json:"budgeted"` // milliunits, lifetime
	Activity        int64   `json:"activity"`
	Balance         int64   `json:"balance"`
	GoalType        *string `json:"goal_type,omitempty"`
	GoalTarget      *int64  `json:"goal_target,omitempty"`
	GoalTargetMonth *string `json:"goal_target_month,omitempty"`
}

// CategoryGroup is a remote category group with its nested categories. Sync
// flattens the group name onto each category before storage so read-heavy
// downstream queries avoid a join.
type CategoryGroup struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}

// MonthlyBudget is a category's budgeted/activity/balance for one specific
// month. Keyed (budget, month, category); wholesale replaced on month sync.
type MonthlyBudget struct {
	BudgetID   string `json:"budget_id"`
	Month      string `json:"month"` // YYYY-MM-01
	CategoryID string `json:"category_id"`
	Budgeted   int64  `json:"budgeted"`
	Activity   int64  `json:"activity"`
	Balance    int64  `json:"balance"`
}

// Transaction is a posted transaction. Amount is signed milliunits, negative
// for outflows. Remote deletions arrive as tombstones: Deleted is set and the
// row is retained.
type Transaction struct {
	ID                    string    `json:"id"`
	BudgetID              string    `json:"budget_id"`
	AccountID             *string   `json:"account_id,omitempty"`
	AccountName           *string   `json:"account_name,omitempty"`
	Date                  time.Time `json:"date"`
	Amount                int64     `json:"amount"`
	Memo                  *string   `json:"memo,omitempty"`
	Cleared               string    `json:"cleared"`
	Approved              bool      `json:"approved"`
	FlagColor             *string   `json:"flag_color,omitempty"`
	PayeeID               *string   `json:"payee_id,omitempty"`
	PayeeName             *string   `json:"payee_name,omitempty"`
	CategoryID            *string   `json:"category_id,omitempty"`
	CategoryName          *string   `json:"category_name,omitempty"`
	TransferAccountID     *string   `json:"transfer_account_id,omitempty"`
	TransferTransactionID *string   `json:"transfer_transaction_id,omitempty"`
	ImportID              *string   `json:"import_id,omitempty"`
	Deleted               bool      `json:"deleted"`
}

// IsOutflow reports whether the transaction spends money.
func (t *Transaction) IsOutflow() bool {
	return t.Amount < 0
}

// ScheduledTransaction is a recurring expectation, not an actual posting.
type ScheduledTransaction struct {
	ID           string    `json:"id"`
	BudgetID     string    `json:"budget_id"`
	AccountID    *string   `json:"account_id,omitempty"`
	AccountName  *string   `json:"account_name,omitempty"`
	DateFirst    time.Time `json:"date_first"`
	DateNext     time.Time `json:"date_next"`
	Frequency    string    `json:"frequency"`
	Amount       int64     `json:"amount"`
	Memo         *string   `json:"memo,omitempty"`
	PayeeID      *string   `json:"payee_id,omitempty"`
	PayeeName    *string   `json:"payee_name,omitempty"`
	CategoryID   *string   `json:"category_id,omitempty"`
	CategoryName *string   `json:"category_name,omitempty"`
	Deleted      bool      `json:"deleted"`
}

// SyncCursor is the stored server knowledge for one (budget, entity type)
// pair. Absence means "do a full fetch". It is only advanced after the
// corresponding batch has been durably written.
type SyncCursor struct {
	BudgetID        string
	EntityType      string
	ServerKnowledge int64
	LastSyncedAt    time.Time
}

// CategorySpending is one row of the spending-by-category aggregate.
type CategorySpending struct {
	CategoryID       *string `json:"category_id,omitempty"`
	CategoryName     *string `json:"category_name,omitempty"`
	TotalAmount      int64   `json:"total_amount"` // sum of outflow magnitudes, milliunits
	TransactionCount int     `json:"transaction_count"`
}

// MonthlySpending is one row of the monthly spending trend.
type MonthlySpending struct {
	Month       string `json:"month"` // YYYY-MM
	TotalAmount int64  `json:"total_amount"`
}

// MonthCategory is a category joined against its snapshot for one month.
// Month-scoped figures win over lifetime totals when present.
type MonthCategory struct {
	Category
	MonthBudgeted *int64 `json:"month_budgeted,omitempty"`
	MonthActivity *int64 `json:"month_activity,omitempty"`
	MonthBalance  *int64 `json:"month_balance,omitempty"`
}

// EffectiveBudgeted returns the month-scoped budgeted amount when the month
// snapshot exists, else the lifetime value.
func (m *MonthCategory) EffectiveBudgeted() int64 {
	if m.MonthBudgeted != nil {
		return *m.MonthBudgeted
	}
	return m.Budgeted
}

// EffectiveActivity returns the month-scoped activity when the month snapshot
// exists, else the lifetime value.
func (m *MonthCategory) EffectiveActivity() int64 {
	if m.MonthActivity != nil {
		return *m.MonthActivity
	}
	return m.Activity
}
