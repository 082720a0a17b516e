package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/budwatch/budwatch/internal/platform/alerts"
	"github.com/budwatch/budwatch/internal/platform/budget"
	"github.com/budwatch/budwatch/internal/platform/sync"
	"github.com/budwatch/budwatch/internal/transport/httpapi/handler"
	"github.com/budwatch/budwatch/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New("test", os.Stdout)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dest))
}

// withURLParam builds a request carrying chi route parameters.
func withURLParam(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// ============================================================================
// Auth
// ============================================================================

type stubIssuer struct {
	token string
	err   error
}

func (s *stubIssuer) GenerateToken() (string, time.Time, error) {
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return s.token, time.Now().Add(24 * time.Hour), nil
}

func TestIssueToken_CorrectPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	h := handler.NewAuthHandler(string(hash), &stubIssuer{token: "tok-123"})

	body, _ := json.Marshal(map[string]string{"password": "open sesame"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.IssueToken(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.TokenResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "tok-123", resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
}

func TestIssueToken_WrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	h := handler.NewAuthHandler(string(hash), &stubIssuer{token: "tok-123"})

	body, _ := json.Marshal(map[string]string{"password": "guess"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.IssueToken(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueToken_NotConfigured(t *testing.T) {
	h := handler.NewAuthHandler("", &stubIssuer{token: "tok-123"})

	body, _ := json.Marshal(map[string]string{"password": "anything"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.IssueToken(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Sync
// ============================================================================

type stubSyncService struct {
	stats      *sync.Stats
	budgets    []budget.Budget
	budgetsErr error
	monthCount int
	monthErr   error
	status     *sync.Status

	lastBudgetID string
	lastForce    bool
	lastMonth    string
}

func (s *stubSyncService) SyncBudgets(ctx context.Context) ([]budget.Budget, error) {
	return s.budgets, s.budgetsErr
}

func (s *stubSyncService) SyncBudget(ctx context.Context, budgetID string, forceFull bool) *sync.Stats {
	s.lastBudgetID = budgetID
	s.lastForce = forceFull
	return s.stats
}

func (s *stubSyncService) SyncMonth(ctx context.Context, budgetID, month string) (int, error) {
	s.lastBudgetID = budgetID
	s.lastMonth = month
	return s.monthCount, s.monthErr
}

func (s *stubSyncService) Status(ctx context.Context, budgetID string) (*sync.Status, error) {
	return s.status, nil
}

type memInvalidator struct {
	invalidated []string
	err         error
}

func (m *memInvalidator) InvalidateBudget(ctx context.Context, budgetID string) error {
	m.invalidated = append(m.invalidated, budgetID)
	return m.err
}

func TestTriggerSync_ForceParamAndCacheInvalidation(t *testing.T) {
	svc := &stubSyncService{stats: &sync.Stats{Transactions: 12}}
	cache := &memInvalidator{}
	h := handler.NewSyncHandler(svc, cache, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/budgets/budget-1/sync?force=true", nil)
	req = withURLParam(req, map[string]string{"id": "budget-1"})
	rec := httptest.NewRecorder()

	h.TriggerSync(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.lastForce)
	assert.Equal(t, "budget-1", svc.lastBudgetID)
	assert.Equal(t, []string{"budget-1"}, cache.invalidated)

	var stats sync.Stats
	decodeBody(t, rec, &stats)
	assert.Equal(t, 12, stats.Transactions)
}

func TestTriggerSync_RateLimitedReturns429(t *testing.T) {
	svc := &stubSyncService{stats: &sync.Stats{RateLimited: true, Errors: []string{"transactions: rate limited"}}}
	h := handler.NewSyncHandler(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/budgets/budget-1/sync", nil)
	req = withURLParam(req, map[string]string{"id": "budget-1"})
	rec := httptest.NewRecorder()

	h.TriggerSync(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestTriggerMonthSync_NormalizesMonth(t *testing.T) {
	svc := &stubSyncService{monthCount: 7}
	h := handler.NewSyncHandler(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/budgets/budget-1/months/2026-08/sync", nil)
	req = withURLParam(req, map[string]string{"id": "budget-1", "month": "2026-08"})
	rec := httptest.NewRecorder()

	h.TriggerMonthSync(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-08-01", svc.lastMonth)
}

func TestTriggerMonthSync_RejectsMalformedMonth(t *testing.T) {
	svc := &stubSyncService{}
	h := handler.NewSyncHandler(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/budgets/budget-1/months/August/sync", nil)
	req = withURLParam(req, map[string]string{"id": "budget-1", "month": "August"})
	rec := httptest.NewRecorder()

	h.TriggerMonthSync(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.lastMonth)
}

// ============================================================================
// Alerts
// ============================================================================

type stubAlertEngine struct {
	result *alerts.RunResult
}

func (s *stubAlertEngine) RunAll(ctx context.Context, budgetID string) *alerts.RunResult {
	return s.result
}

func (s *stubAlertEngine) Schemas() map[alerts.Type]map[string]alerts.ConfigField {
	return map[alerts.Type]map[string]alerts.ConfigField{
		alerts.TypeUnusualSpending: {"warning_threshold": {Type: "float", Default: 2.5}},
	}
}

type stubAlertStore struct {
	alerts       []alerts.Alert
	acknowledged []string
	dismissed    []string
	notFound     bool
}

func (s *stubAlertStore) ListAlerts(ctx context.Context, budgetID string, includeDismissed bool) ([]alerts.Alert, error) {
	return s.alerts, nil
}

func (s *stubAlertStore) GetAlert(ctx context.Context, id string) (*alerts.Alert, error) {
	if s.notFound {
		return nil, budget.ErrAlertNotFound
	}
	return &alerts.Alert{ID: id, BudgetID: "budget-1", Type: alerts.TypeUnusualSpending}, nil
}

func (s *stubAlertStore) AcknowledgeAlert(ctx context.Context, id string) error {
	if s.notFound {
		return budget.ErrAlertNotFound
	}
	s.acknowledged = append(s.acknowledged, id)
	return nil
}

func (s *stubAlertStore) DismissAlert(ctx context.Context, id string) error {
	if s.notFound {
		return budget.ErrAlertNotFound
	}
	s.dismissed = append(s.dismissed, id)
	return nil
}

func TestRunDetection_ReturnsRunResult(t *testing.T) {
	engine := &stubAlertEngine{result: &alerts.RunResult{Detected: 3, Saved: 2, Skipped: 1}}
	h := handler.NewAlertHandler(engine, &stubAlertStore{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/budgets/budget-1/alerts/run", nil)
	req = withURLParam(req, map[string]string{"id": "budget-1"})
	rec := httptest.NewRecorder()

	h.RunDetection(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result alerts.RunResult
	decodeBody(t, rec, &result)
	assert.Equal(t, 3, result.Detected)
	assert.Equal(t, 2, result.Saved)
	assert.Equal(t, 1, result.Skipped)
}

func TestListAlerts_SeverityAndTypeFilters(t *testing.T) {
	store := &stubAlertStore{alerts: []alerts.Alert{
		{ID: "a1", Type: alerts.TypeUnusualSpending, Severity: alerts.SeverityCritical},
		{ID: "a2", Type: alerts.TypeUnusualSpending, Severity: alerts.SeverityWarning},
		{ID: "a3", Type: alerts.TypeBudgetOverspending, Severity: alerts.SeverityCritical},
	}}
	h := handler.NewAlertHandler(&stubAlertEngine{}, store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/budgets/budget-1/alerts?severity=critical&type=unusual_spending", nil)
	req = withURLParam(req, map[string]string{"id": "budget-1"})
	rec := httptest.NewRecorder()

	h.ListAlerts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Alerts []alerts.Alert `json:"alerts"`
		Count  int            `json:"count"`
	}
	decodeBody(t, rec, &resp)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "a1", resp.Alerts[0].ID)
}

func TestDismissAlert_NotFound(t *testing.T) {
	h := handler.NewAlertHandler(&stubAlertEngine{}, &stubAlertStore{notFound: true}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/missing/dismiss", nil)
	req = withURLParam(req, map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()

	h.DismissAlert(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcknowledgeAlert_ReturnsUpdatedAlert(t *testing.T) {
	store := &stubAlertStore{}
	h := handler.NewAlertHandler(&stubAlertEngine{}, store, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/alert-9/acknowledge", nil)
	req = withURLParam(req, map[string]string{"id": "alert-9"})
	rec := httptest.NewRecorder()

	h.AcknowledgeAlert(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"alert-9"}, store.acknowledged)

	var alert alerts.Alert
	decodeBody(t, rec, &alert)
	assert.Equal(t, "alert-9", alert.ID)
}

func TestGetConfigSchemas(t *testing.T) {
	h := handler.NewAlertHandler(&stubAlertEngine{}, &stubAlertStore{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/config", nil)
	rec := httptest.NewRecorder()

	h.GetConfigSchemas(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var schemas map[string]map[string]any
	decodeBody(t, rec, &schemas)
	assert.Contains(t, schemas, string(alerts.TypeUnusualSpending))
}

// ============================================================================
// Budgets
// ============================================================================

type stubBudgetStore struct {
	budgets []budget.Budget
	missing bool
}

func (s *stubBudgetStore) ListBudgets(ctx context.Context) ([]budget.Budget, error) {
	return s.budgets, nil
}

func (s *stubBudgetStore) GetBudget(ctx context.Context, id string) (*budget.Budget, error) {
	if s.missing {
		return nil, budget.ErrBudgetNotFound
	}
	return &budget.Budget{ID: id, Name: "Family Budget"}, nil
}

func (s *stubBudgetStore) ListAccounts(ctx context.Context, budgetID string) ([]budget.Account, error) {
	return nil, errors.New("not used")
}

func (s *stubBudgetStore) ListCategories(ctx context.Context, budgetID string) ([]budget.Category, error) {
	return nil, errors.New("not used")
}

func (s *stubBudgetStore) ScheduledTransactions(ctx context.Context, budgetID string) ([]budget.ScheduledTransaction, error) {
	return nil, errors.New("not used")
}

func TestGetBudget_NotFound(t *testing.T) {
	h := handler.NewBudgetHandler(&stubBudgetStore{missing: true}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/budgets/nope", nil)
	req = withURLParam(req, map[string]string{"id": "nope"})
	rec := httptest.NewRecorder()

	h.GetBudget(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBudgets(t *testing.T) {
	store := &stubBudgetStore{budgets: []budget.Budget{{ID: "b1", Name: "Family Budget"}}}
	h := handler.NewBudgetHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/budgets", nil)
	rec := httptest.NewRecorder()

	h.ListBudgets(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Budgets []budget.Budget `json:"budgets"`
		Count   int             `json:"count"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Family Budget", resp.Budgets[0].Name)
}
