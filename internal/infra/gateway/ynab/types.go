package ynab

import "encoding/json"

// YNAB wraps every response body in a "data" envelope. Delta endpoints add a
// server_knowledge watermark: presenting it on a later fetch yields only
// records changed since then, including deletions as tombstones.

// BudgetSummaryData is one budget in the budgets list
type BudgetSummaryData struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	LastModifiedOn *string         `json:"last_modified_on"`
	FirstMonth     *string         `json:"first_month"`
	LastMonth      *string         `json:"last_month"`
	CurrencyFormat json.RawMessage `json:"currency_format"`
}

type budgetsResponse struct {
	Data struct {
		Budgets []BudgetSummaryData `json:"budgets"`
	} `json:"data"`
}

// AccountData is one account row from the accounts endpoint
type AccountData struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	OnBudget         bool   `json:"on_budget"`
	Closed           bool   `json:"closed"`
	Balance          int64  `json:"balance"`
	ClearedBalance   int64  `json:"cleared_balance"`
	UnclearedBalance int64  `json:"uncleared_balance"`
	Deleted          bool   `json:"deleted"`
}

type accountsResponse struct {
	Data struct {
		Accounts        []AccountData `json:"accounts"`
		ServerKnowledge int64         `json:"server_knowledge"`
	} `json:"data"`
}

// CategoryGroupData is a category group with its nested categories
type CategoryGroupData struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Hidden     bool           `json:"hidden"`
	Deleted    bool           `json:"deleted"`
	Categories []CategoryData `json:"categories"`
}

// CategoryData is one category row
type CategoryData struct {
	ID              string  `json:"id"`
	CategoryGroupID string  `json:"category_group_id"`
	Name            string  `json:"name"`
	Hidden          bool    `json:"hidden"`
	Budgeted        int64   `json:"budgeted"`
	Activity        int64   `json:"activity"`
	Balance         int64   `json:"balance"`
	GoalType        *string `json:"goal_type"`
	GoalTarget      *int64  `json:"goal_target"`
	GoalTargetMonth *string `json:"goal_target_month"`
	Deleted         bool    `json:"deleted"`
}

type categoriesResponse struct {
	Data struct {
		CategoryGroups  []CategoryGroupData `json:"category_groups"`
		ServerKnowledge int64               `json:"server_knowledge"`
	} `json:"data"`
}

// TransactionData is one transaction row. Dates are ISO-8601 date strings,
// amounts are signed milliunits (negative = outflow).
type TransactionData struct {
	ID                    string  `json:"id"`
	AccountID             *string `json:"account_id"`
	AccountName           *string `json:"account_name"`
	Date                  string  `json:"date"`
	Amount                int64   `json:"amount"`
	Memo                  *string `json:"memo"`
	Cleared               string  `json:"cleared"`
	Approved              bool    `json:"approved"`
	FlagColor             *string `json:"flag_color"`
	PayeeID               *string `json:"payee_id"`
	PayeeName             *string `json:"payee_name"`
	CategoryID            *string `json:"category_id"`
	CategoryName          *string `json:"category_name"`
	TransferAccountID     *string `json:"transfer_account_id"`
	TransferTransactionID *string `json:"transfer_transaction_id"`
	ImportID              *string `json:"import_id"`
	Deleted               bool    `json:"deleted"`
}

type transactionsResponse struct {
	Data struct {
		Transactions    []TransactionData `json:"transactions"`
		ServerKnowledge int64             `json:"server_knowledge"`
	} `json:"data"`
}

// ScheduledTransactionData is one scheduled transaction row
type ScheduledTransactionData struct {
	ID           string  `json:"id"`
	AccountID    *string `json:"account_id"`
	AccountName  *string `json:"account_name"`
	DateFirst    string  `json:"date_first"`
	DateNext     string  `json:"date_next"`
	Frequency    string  `json:"frequency"`
	Amount       int64   `json:"amount"`
	Memo         *string `json:"memo"`
	PayeeID      *string `json:"payee_id"`
	PayeeName    *string `json:"payee_name"`
	CategoryID   *string `json:"category_id"`
	CategoryName *string `json:"category_name"`
	Deleted      bool    `json:"deleted"`
}

type scheduledResponse struct {
	Data struct {
		ScheduledTransactions []ScheduledTransactionData `json:"scheduled_transactions"`
		ServerKnowledge       int64                      `json:"server_knowledge"`
	} `json:"data"`
}

// MonthDetailData is one month's category snapshot. Budgeted/activity here
// are month-scoped, distinct from the lifetime totals on CategoryData.
type MonthDetailData struct {
	Month      string         `json:"month"`
	Categories []CategoryData `json:"categories"`
}

type monthResponse struct {
	Data struct {
		Month MonthDetailData `json:"month"`
	} `json:"data"`
}

type userResponse struct {
	Data struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	} `json:"error"`
}
