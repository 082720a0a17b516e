package budget

import (
	"fmt"
	"time"
)

// MonthLayout is the wire format for budget months (first of month).
const MonthLayout = "2006-01-02"

// CurrentMonth returns the current month in YNAB format (YYYY-MM-01).
func CurrentMonth() string {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(MonthLayout)
}

// ParseMonth parses a month string in either YYYY-MM or YYYY-MM-01 form.
func ParseMonth(s string) (time.Time, error) {
	if len(s) == 7 {
		s = s + "-01"
	}
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return t, nil
}

// PreviousMonths returns count month strings in YNAB format, newest first,
// starting with the current month.
func PreviousMonths(count int) []string {
	now := time.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]string, 0, count)
	for i := 0; i < count; i++ {
		months = append(months, first.AddDate(0, -i, 0).Format(MonthLayout))
	}
	return months
}
