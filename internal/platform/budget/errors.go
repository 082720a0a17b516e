package budget

import "errors"

var (
	ErrBudgetNotFound      = errors.New("budget not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlertNotFound       = errors.New("alert not found")
	ErrInvalidMonth        = errors.New("invalid month format")
)
