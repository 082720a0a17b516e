package ynab

import (
	"context"
	"fmt"
	"time"

	"github.com/budwatch/budwatch/internal/platform/budget"
)

const dateLayout = "2006-01-02"

// SyncAdapter adapts the YNAB client to the sync orchestrator's remote API,
// converting wire records into domain entities.
type SyncAdapter struct {
	client *Client
}

// NewSyncAdapter creates a new YNAB sync adapter
func NewSyncAdapter(client *Client) *SyncAdapter {
	return &SyncAdapter{client: client}
}

// GetBudgets fetches the budget list as domain entities
func (a *SyncAdapter) GetBudgets(ctx context.Context) ([]budget.Budget, error) {
	raw, err := a.client.GetBudgets(ctx)
	if err != nil {
		return nil, err
	}

	budgets := make([]budget.Budget, 0, len(raw))
	for _, b := range raw {
		var currencyFormat *string
		if len(b.CurrencyFormat) > 0 && string(b.CurrencyFormat) != "null" {
			s := string(b.CurrencyFormat)
			currencyFormat = &s
		}
		budgets = append(budgets, budget.Budget{
			ID:             b.ID,
			Name:           b.Name,
			LastModifiedOn: b.LastModifiedOn,
			FirstMonth:     b.FirstMonth,
			LastMonth:      b.LastMonth,
			CurrencyFormat: currencyFormat,
		})
	}
	return budgets, nil
}

// GetAccounts fetches changed accounts since the cursor
func (a *SyncAdapter) GetAccounts(ctx context.Context, budgetID string, cursor *int64) ([]budget.Account, int64, error) {
	raw, knowledge, err := a.client.GetAccounts(ctx, budgetID, cursor)
	if err != nil {
		return nil, 0, err
	}

	accounts := make([]budget.Account, 0, len(raw))
	for _, acc := range raw {
		accounts = append(accounts, budget.Account{
			ID:               acc.ID,
			BudgetID:         budgetID,
			Name:             acc.Name,
			Type:             acc.Type,
			OnBudget:         acc.OnBudget,
			Closed:           acc.Closed,
			Balance:          acc.Balance,
			ClearedBalance:   acc.ClearedBalance,
			UnclearedBalance: acc.UnclearedBalance,
		})
	}
	return accounts, knowledge, nil
}

// GetCategories fetches changed category groups since the cursor. Group
// flattening is the orchestrator's job; groups come through nested.
func (a *SyncAdapter) GetCategories(ctx context.Context, budgetID string, cursor *int64) ([]budget.CategoryGroup, int64, error) {
	raw, knowledge, err := a.client.GetCategories(ctx, budgetID, cursor)
	if err != nil {
		return nil, 0, err
	}

	groups := make([]budget.CategoryGroup, 0, len(raw))
	for _, g := range raw {
		group := budget.CategoryGroup{
			ID:   g.ID,
			Name: g.Name,
		}
		for _, c := range g.Categories {
			group.Categories = append(group.Categories, budget.Category{
				ID:              c.ID,
				BudgetID:        budgetID,
				Name:            c.Name,
				Hidden:          c.Hidden,
				Budgeted:        c.Budgeted,
				Activity:        c.Activity,
				Balance:         c.Balance,
				GoalType:        c.GoalType,
				GoalTarget:      c.GoalTarget,
				GoalTargetMonth: c.GoalTargetMonth,
			})
		}
		groups = append(groups, group)
	}
	return groups, knowledge, nil
}

// GetTransactions fetches changed transactions since the cursor
func (a *SyncAdapter) GetTransactions(ctx context.Context, budgetID string, cursor *int64) ([]budget.Transaction, int64, error) {
	raw, knowledge, err := a.client.GetTransactions(ctx, budgetID, cursor)
	if err != nil {
		return nil, 0, err
	}

	txns := make([]budget.Transaction, 0, len(raw))
	for _, t := range raw {
		date, err := time.Parse(dateLayout, t.Date)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid transaction date %q: %w", t.Date, err)
		}
		txns = append(txns, budget.Transaction{
			ID:                    t.ID,
			BudgetID:              budgetID,
			AccountID:             t.AccountID,
			AccountName:           t.AccountName,
			Date:                  date,
			Amount:                t.Amount,
			Memo:                  t.Memo,
			Cleared:               t.Cleared,
			Approved:              t.Approved,
			FlagColor:             t.FlagColor,
			PayeeID:               t.PayeeID,
			PayeeName:             t.PayeeName,
			CategoryID:            t.CategoryID,
			CategoryName:          t.CategoryName,
			TransferAccountID:     t.TransferAccountID,
			TransferTransactionID: t.TransferTransactionID,
			ImportID:              t.ImportID,
			Deleted:               t.Deleted,
		})
	}
	return txns, knowledge, nil
}

// GetScheduledTransactions fetches changed scheduled transactions since the cursor
func (a *SyncAdapter) GetScheduledTransactions(ctx context.Context, budgetID string, cursor *int64) ([]budget.ScheduledTransaction, int64, error) {
	raw, knowledge, err := a.client.GetScheduledTransactions(ctx, budgetID, cursor)
	if err != nil {
		return nil, 0, err
	}

	scheds := make([]budget.ScheduledTransaction, 0, len(raw))
	for _, s := range raw {
		dateFirst, err := time.Parse(dateLayout, s.DateFirst)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid date_first %q: %w", s.DateFirst, err)
		}
		dateNext, err := time.Parse(dateLayout, s.DateNext)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid date_next %q: %w", s.DateNext, err)
		}
		scheds = append(scheds, budget.ScheduledTransaction{
			ID:           s.ID,
			BudgetID:     budgetID,
			AccountID:    s.AccountID,
			AccountName:  s.AccountName,
			DateFirst:    dateFirst,
			DateNext:     dateNext,
			Frequency:    s.Frequency,
			Amount:       s.Amount,
			Memo:         s.Memo,
			PayeeID:      s.PayeeID,
			PayeeName:    s.PayeeName,
			CategoryID:   s.CategoryID,
			CategoryName: s.CategoryName,
			Deleted:      s.Deleted,
		})
	}
	return scheds, knowledge, nil
}

// GetMonth fetches one month's category snapshot as domain entries
func (a *SyncAdapter) GetMonth(ctx context.Context, budgetID, month string) ([]budget.MonthlyBudget, error) {
	detail, err := a.client.GetMonth(ctx, budgetID, month)
	if err != nil {
		return nil, err
	}

	entries := make([]budget.MonthlyBudget, 0, len(detail.Categories))
	for _, c := range detail.Categories {
		entries = append(entries, budget.MonthlyBudget{
			BudgetID:   budgetID,
			Month:      month,
			CategoryID: c.ID,
			Budgeted:   c.Budgeted,
			Activity:   c.Activity,
			Balance:    c.Balance,
		})
	}
	return entries, nil
}

// Remaining reports the requests left in the rate-limit window
func (a *SyncAdapter) Remaining() int {
	return a.client.Remaining()
}
