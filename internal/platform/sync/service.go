package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/budwatch/budwatch/internal/infra/gateway/ynab"
	"github.com/budwatch/budwatch/internal/platform/budget"
	"github.com/budwatch/budwatch/pkg/logger"
)

// SyncState is the per-(budget, entity type) sync lifecycle state.
type SyncState string

const (
	StateNotSynced SyncState = "not_synced"
	StateSyncing   SyncState = "syncing"
	StateSynced    SyncState = "synced"
)

// Stats reports the outcome of one sync cycle for a budget. Partial failures
// land in Errors instead of aborting the cycle.
type Stats struct {
	Accounts              int      `json:"accounts"`
	Categories            int      `json:"categories"`
	Transactions          int      `json:"transactions"`
	ScheduledTransactions int      `json:"scheduled_transactions"`
	MonthEntries          int      `json:"month_entries"`
	Errors                []string `json:"errors,omitempty"`

	// RateLimited is set when any entity type failed on the remote quota,
	// so the caller can wait instead of treating it as a hard failure.
	RateLimited bool `json:"rate_limited,omitempty"`
}

// Status describes sync progress for a budget.
type Status struct {
	BudgetID          string               `json:"budget_id"`
	LastSync          *time.Time           `json:"last_sync,omitempty"`
	Knowledge         map[string]*int64    `json:"knowledge"`
	States            map[string]SyncState `json:"states"`
	RequestsRemaining int                  `json:"requests_remaining"`
}

// Service drives sync cycles between the remote budgeting API and the local
// cache. One cycle per budget: for each entity type, read the stored cursor,
// fetch the delta, upsert the batch, then persist the new cursor. A failure
// in one entity type never prevents the others from being attempted.
type Service struct {
	config *Config
	store  Store
	remote RemoteAPI
	logger *logger.Logger

	mu     sync.Mutex
	states map[string]SyncState
}

// NewService creates a new sync service
func NewService(config *Config, store Store, remote RemoteAPI, log *logger.Logger) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	_ = config.Validate()

	return &Service{
		config: config,
		store:  store,
		remote: remote,
		logger: log.WithField("service", "sync"),
		states: make(map[string]SyncState),
	}
}

// SyncBudgets syncs the budget list itself. This is the only fetch whose
// failure is fatal for the call; rate-limit errors pass through wrapped so
// the caller can distinguish them.
func (s *Service) SyncBudgets(ctx context.Context) ([]budget.Budget, error) {
	budgets, err := s.remote.GetBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sync budgets: %w", err)
	}

	for i := range budgets {
		if err := s.store.UpsertBudget(ctx, &budgets[i]); err != nil {
			return nil, fmt.Errorf("failed to store budget %s: %w", budgets[i].ID, err)
		}
		s.logger.Info("synced budget", "budget_id", budgets[i].ID, "name", budgets[i].Name)
	}

	return budgets, nil
}

// SyncBudget runs one full sync cycle for a budget: the four cursor-tracked
// entity types plus the configured month snapshots. It never fails as a
// whole; per-entity errors are collected into the returned stats.
func (s *Service) SyncBudget(ctx context.Context, budgetID string, forceFull bool) *Stats {
	stats := &Stats{}

	stats.Accounts = s.runEntity(ctx, budgetID, budget.EntityAccounts, forceFull, stats, s.syncAccounts)
	stats.Categories = s.runEntity(ctx, budgetID, budget.EntityCategories, forceFull, stats, s.syncCategories)
	stats.Transactions = s.runEntity(ctx, budgetID, budget.EntityTransactions, forceFull, stats, s.syncTransactions)
	stats.ScheduledTransactions = s.runEntity(ctx, budgetID, budget.EntityScheduledTransactions, forceFull, stats, s.syncScheduledTransactions)

	for _, month := range budget.PreviousMonths(s.config.SnapshotMonths) {
		count, err := s.SyncMonth(ctx, budgetID, month)
		if err != nil {
			s.recordError(stats, "month "+month, err)
			continue
		}
		stats.MonthEntries += count
	}

	s.logger.Info("sync cycle finished",
		"budget_id", budgetID,
		"accounts", stats.Accounts,
		"categories", stats.Categories,
		"transactions", stats.Transactions,
		"scheduled_transactions", stats.ScheduledTransactions,
		"month_entries", stats.MonthEntries,
		"error_count", len(stats.Errors))

	return stats
}

type entitySyncFunc func(ctx context.Context, budgetID string, forceFull bool) (int, error)

// runEntity wraps one entity type's sync with state tracking and failure
// isolation.
func (s *Service) runEntity(ctx context.Context, budgetID, entity string, forceFull bool, stats *Stats, fn entitySyncFunc) int {
	prev := s.StateOf(budgetID, entity)
	s.setState(budgetID, entity, StateSyncing)

	count, err := fn(ctx, budgetID, forceFull)
	if err != nil {
		s.setState(budgetID, entity, prev)
		s.recordError(stats, entity, err)
		return 0
	}

	s.setState(budgetID, entity, StateSynced)
	return count
}

func (s *Service) recordError(stats *Stats, scope string, err error) {
	if ynab.IsRateLimitError(err) {
		stats.RateLimited = true
	}
	stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", scope, err))
	s.logger.Error("sync failed", "scope", scope, "error", err)
}

func (s *Service) syncAccounts(ctx context.Context, budgetID string, forceFull bool) (int, error) {
	cursor, err := s.cursorFor(ctx, budgetID, budget.EntityAccounts, forceFull)
	if err != nil {
		return 0, err
	}

	accounts, knowledge, err := s.remote.GetAccounts(ctx, budgetID, cursor)
	if err != nil {
		return 0, err
	}

	for i := range accounts {
		if err := s.store.UpsertAccount(ctx, &accounts[i]); err != nil {
			return 0, fmt.Errorf("failed to store account %s: %w", accounts[i].ID, err)
		}
	}

	if err := s.store.SetCursor(ctx, budgetID, budget.EntityAccounts, knowledge); err != nil {
		return 0, fmt.Errorf("failed to advance cursor: %w", err)
	}

	s.logger.Debug("synced accounts", "budget_id", budgetID, "count", len(accounts))
	return len(accounts), nil
}

func (s *Service) syncCategories(ctx context.Context, budgetID string, forceFull bool) (int, error) {
	cursor, err := s.cursorFor(ctx, budgetID, budget.EntityCategories, forceFull)
	if err != nil {
		return 0, err
	}

	groups, knowledge, err := s.remote.GetCategories(ctx, budgetID, cursor)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, group := range groups {
		// Flatten the group's display name onto each category so the
		// read-heavy queries downstream avoid a join.
		groupID, groupName := group.ID, group.Name
		for i := range group.Categories {
			cat := group.Categories[i]
			cat.GroupID = &groupID
			cat.GroupName = &groupName
			if err := s.store.UpsertCategory(ctx, &cat); err != nil {
				return 0, fmt.Errorf("failed to store category %s: %w", cat.ID, err)
			}
			count++
		}
	}

	if err := s.store.SetCursor(ctx, budgetID, budget.EntityCategories, knowledge); err != nil {
		return 0, fmt.Errorf("failed to advance cursor: %w", err)
	}

	s.logger.Debug("synced categories", "budget_id", budgetID, "count", count)
	return count, nil
}

func (s *Service) syncTransactions(ctx context.Context, budgetID string, forceFull bool) (int, error) {
	cursor, err := s.cursorFor(ctx, budgetID, budget.EntityTransactions, forceFull)
	if err != nil {
		return 0, err
	}

	txns, knowledge, err := s.remote.GetTransactions(ctx, budgetID, cursor)
	if err != nil {
		return 0, err
	}

	for i := range txns {
		if err := s.store.UpsertTransaction(ctx, &txns[i]); err != nil {
			return 0, fmt.Errorf("failed to store transaction %s: %w", txns[i].ID, err)
		}
	}

	if err := s.store.SetCursor(ctx, budgetID, budget.EntityTransactions, knowledge); err != nil {
		return 0, fmt.Errorf("failed to advance cursor: %w", err)
	}

	s.logger.Debug("synced transactions", "budget_id", budgetID, "count", len(txns))
	return len(txns), nil
}

func (s *Service) syncScheduledTransactions(ctx context.Context, budgetID string, forceFull bool) (int, error) {
	cursor, err := s.cursorFor(ctx, budgetID, budget.EntityScheduledTransactions, forceFull)
	if err != nil {
		return 0, err
	}

	scheds, knowledge, err := s.remote.GetScheduledTransactions(ctx, budgetID, cursor)
	if err != nil {
		return 0, err
	}

	for i := range scheds {
		if err := s.store.UpsertScheduledTransaction(ctx, &scheds[i]); err != nil {
			return 0, fmt.Errorf("failed to store scheduled transaction %s: %w", scheds[i].ID, err)
		}
	}

	if err := s.store.SetCursor(ctx, budgetID, budget.EntityScheduledTransactions, knowledge); err != nil {
		return 0, fmt.Errorf("failed to advance cursor: %w", err)
	}

	s.logger.Debug("synced scheduled transactions", "budget_id", budgetID, "count", len(scheds))
	return len(scheds), nil
}

// SyncMonth refreshes one month's category snapshot. Defaults to the current
// month when month is empty. The snapshot is wholesale replaced; there is no
// cursor for this call.
func (s *Service) SyncMonth(ctx context.Context, budgetID, month string) (int, error) {
	if month == "" {
		month = budget.CurrentMonth()
	}

	entries, err := s.remote.GetMonth(ctx, budgetID, month)
	if err != nil {
		return 0, err
	}

	for i := range entries {
		if err := s.store.UpsertMonthlyBudget(ctx, &entries[i]); err != nil {
			return 0, fmt.Errorf("failed to store month entry %s/%s: %w", month, entries[i].CategoryID, err)
		}
	}

	s.logger.Debug("synced month snapshot", "budget_id", budgetID, "month", month, "count", len(entries))
	return len(entries), nil
}

// Status reports per-entity cursors, last sync time, sync states, and the
// remaining remote quota for a budget.
func (s *Service) Status(ctx context.Context, budgetID string) (*Status, error) {
	lastSync, err := s.store.LastSyncedAt(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to read last sync time: %w", err)
	}

	knowledge := make(map[string]*int64, len(budget.SyncEntities))
	states := make(map[string]SyncState, len(budget.SyncEntities))
	for _, entity := range budget.SyncEntities {
		cursor, err := s.store.GetCursor(ctx, budgetID, entity)
		if err != nil {
			return nil, fmt.Errorf("failed to read cursor for %s: %w", entity, err)
		}
		if cursor != nil {
			k := cursor.ServerKnowledge
			knowledge[entity] = &k
		} else {
			knowledge[entity] = nil
		}
		states[entity] = s.StateOf(budgetID, entity)
	}

	return &Status{
		BudgetID:          budgetID,
		LastSync:          lastSync,
		Knowledge:         knowledge,
		States:            states,
		RequestsRemaining: s.remote.Remaining(),
	}, nil
}

// StateOf returns the sync state for a (budget, entity type) pair.
func (s *Service) StateOf(budgetID, entity string) SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[budgetID+"/"+entity]; ok {
		return st
	}
	return StateNotSynced
}

func (s *Service) setState(budgetID, entity string, st SyncState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[budgetID+"/"+entity] = st
}

// cursorFor reads the stored cursor, or nil for a full fetch.
func (s *Service) cursorFor(ctx context.Context, budgetID, entity string, forceFull bool) (*int64, error) {
	if forceFull {
		return nil, nil
	}

	cursor, err := s.store.GetCursor(ctx, budgetID, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to read cursor: %w", err)
	}
	if cursor == nil {
		return nil, nil
	}

	k := cursor.ServerKnowledge
	return &k, nil
}
