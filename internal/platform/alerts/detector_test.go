package alerts

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budwatch/budwatch/pkg/logger"
)

// memStore is an in-memory alert store good enough for dedupe semantics.
type memStore struct {
	alerts []Alert
}

func (s *memStore) ActiveAlertExists(_ context.Context, budgetID string, alertType Type, relatedEntityID string) (bool, error) {
	for _, a := range s.alerts {
		if a.BudgetID == budgetID && a.Type == alertType && !a.Dismissed &&
			a.RelatedEntityID != nil && *a.RelatedEntityID == relatedEntityID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) SaveAlert(_ context.Context, a *Alert) error {
	s.alerts = append(s.alerts, *a)
	return nil
}

func (s *memStore) ListAlerts(_ context.Context, budgetID string, includeDismissed bool) ([]Alert, error) {
	var out []Alert
	for _, a := range s.alerts {
		if a.BudgetID == budgetID && (includeDismissed || !a.Dismissed) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) GetAlert(_ context.Context, id string) (*Alert, error) {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			return &s.alerts[i], nil
		}
	}
	return nil, nil
}

func (s *memStore) AcknowledgeAlert(_ context.Context, id string) error { return nil }

func (s *memStore) DismissAlert(_ context.Context, id string) error {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Dismissed = true
		}
	}
	return nil
}

var _ Store = (*memStore)(nil)

// stubDetector returns canned alerts or a canned error.
type stubDetector struct {
	alertType Type
	alerts    []Alert
	err       error
}

func (d *stubDetector) AlertType() Type { return d.alertType }

func (d *stubDetector) Detect(context.Context, string) ([]Alert, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.alerts, nil
}

func (d *stubDetector) ConfigSchema() map[string]ConfigField { return nil }

func testEngine(store Store, detectors ...Detector) *Engine {
	log := logger.New("test", os.Stdout)
	return NewEngine(detectors, NewWriter(store, log), log)
}

func candidate(alertType Type, relatedID string) Alert {
	return Alert{
		BudgetID:        "budget-1",
		Type:            alertType,
		Severity:        SeverityWarning,
		Title:           "test alert",
		Description:     "test alert",
		RelatedEntityID: strPtr(relatedID),
	}
}

func TestRunAll_SecondRunDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	engine := testEngine(store, &stubDetector{
		alertType: TypeUnusualSpending,
		alerts:    []Alert{candidate(TypeUnusualSpending, "txn-1")},
	})

	first := engine.RunAll(ctx, "budget-1")
	second := engine.RunAll(ctx, "budget-1")

	assert.Equal(t, 1, first.Saved)
	assert.Equal(t, 0, second.Saved)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, store.alerts, 1)
}

func TestRunAll_DismissedAlertRearmsDetection(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	engine := testEngine(store, &stubDetector{
		alertType: TypeUnusualSpending,
		alerts:    []Alert{candidate(TypeUnusualSpending, "txn-1")},
	})

	first := engine.RunAll(ctx, "budget-1")
	require.Equal(t, 1, first.Saved)

	require.NoError(t, store.DismissAlert(ctx, store.alerts[0].ID))

	second := engine.RunAll(ctx, "budget-1")
	assert.Equal(t, 1, second.Saved)
	assert.Len(t, store.alerts, 2)
}

func TestRunAll_DetectorFailureDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	engine := testEngine(store,
		&stubDetector{alertType: TypeUnusualSpending, err: errors.New("bad math")},
		&stubDetector{
			alertType: TypeBudgetOverspending,
			alerts:    []Alert{candidate(TypeBudgetOverspending, "cat-1")},
		},
	)

	result := engine.RunAll(ctx, "budget-1")

	assert.Equal(t, 1, result.Saved)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unusual_spending")
	assert.Contains(t, result.Errors[0], "bad math")
}

func TestRunAll_DifferentTypesForSameEntityBothPersist(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	engine := testEngine(store, &stubDetector{
		alertType: TypeRecurringChange,
		alerts: []Alert{
			candidate(TypeRecurringChange, "sched-1"),
			candidate(TypeRecurringMissing, "sched-1"),
		},
	})

	result := engine.RunAll(ctx, "budget-1")

	assert.Equal(t, 2, result.Saved)
	assert.Len(t, store.alerts, 2)
}

func TestWriter_AssignsIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	log := logger.New("test", os.Stdout)
	writer := NewWriter(store, log)

	a := candidate(TypeUnusualSpending, "txn-1")
	saved, err := writer.Write(ctx, &a)

	require.NoError(t, err)
	assert.True(t, saved)
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestNewDetectors_ReturnsFixedSet(t *testing.T) {
	detectors := NewDetectors(new(MockReader), DefaultConfig())

	require.Len(t, detectors, 3)
	assert.Equal(t, TypeUnusualSpending, detectors[0].AlertType())
	assert.Equal(t, TypeBudgetOverspending, detectors[1].AlertType())
	assert.Equal(t, TypeRecurringChange, detectors[2].AlertType())

	for _, d := range detectors {
		assert.NotEmpty(t, d.ConfigSchema())
	}
}
