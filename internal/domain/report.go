package domain

import "github.com/shopspring/decimal"

// ProjectSummary is a live rollup over record data for one project. It is
// recomputed on every read and never derived from ledger deltas, so it
// stays consistent with records even while balance bookkeeping is
// mid-transition.
type ProjectSummary struct {
	ProjectCode         string          `json:"project_code"`
	IncomeTotal         decimal.Decimal `json:"income_total"`
	ExpenseTotal        decimal.Decimal `json:"expense_total"`
	PendingIncomeCount  int64           `json:"pending_income_count"`
	PendingExpenseCount int64           `json:"pending_expense_count"`
}

// GlobalSummary is the same rollup across all projects, plus the summed
// balance of active accounts.
type GlobalSummary struct {
	IncomeTotal         decimal.Decimal `json:"income_total"`
	ExpenseTotal        decimal.Decimal `json:"expense_total"`
	PendingIncomeCount  int64           `json:"pending_income_count"`
	PendingExpenseCount int64           `json:"pending_expense_count"`
	AccountBalanceTotal decimal.Decimal `json:"account_balance_total"`
}
