package repository

import (
	"context"
	"fmt"

	"finance-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SummaryRepository is the Aggregation Reader: live sums over the Record
// Store, never derived from balance deltas and never cached. Reads take no
// locks, so a rollup may trail an in-flight reconciliation.
type SummaryRepository interface {
	ProjectTotals(ctx context.Context, projectCode string) (*domain.ProjectSummary, error)
	GlobalSummary(ctx context.Context) (*domain.GlobalSummary, error)
}

type summaryRepo struct {
	db *pgxpool.Pool

	// settledExpense holds the labels after which an expense is no longer
	// pending: the paid-equivalent set plus rejected.
	settledExpense []string
	settledIncome  []string
}

func NewSummaryRepo(db *pgxpool.Pool, expenseVocab, incomeVocab *domain.Vocabulary) SummaryRepository {
	return &summaryRepo{
		db:             db,
		settledExpense: append([]string{domain.ExpenseStatusRejected}, expenseVocab.AffectingLabels()...),
		settledIncome:  incomeVocab.AffectingLabels(),
	}
}

func (r *summaryRepo) ProjectTotals(ctx context.Context, projectCode string) (*domain.ProjectSummary, error) {
	s := &domain.ProjectSummary{ProjectCode: projectCode}

	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0),
		       COUNT(*) FILTER (WHERE status <> ALL($2))
		FROM incomes
		WHERE project_code = $1
	`, projectCode, r.settledIncome).Scan(&s.IncomeTotal, &s.PendingIncomeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to sum incomes: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(net_amount), 0),
		       COUNT(*) FILTER (WHERE status <> ALL($2))
		FROM expenses
		WHERE project_code = $1
	`, projectCode, r.settledExpense).Scan(&s.ExpenseTotal, &s.PendingExpenseCount)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses: %w", err)
	}

	return s, nil
}

func (r *summaryRepo) GlobalSummary(ctx context.Context) (*domain.GlobalSummary, error) {
	var s domain.GlobalSummary

	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0),
		       COUNT(*) FILTER (WHERE status <> ALL($1))
		FROM incomes
	`, r.settledIncome).Scan(&s.IncomeTotal, &s.PendingIncomeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to sum incomes: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(net_amount), 0),
		       COUNT(*) FILTER (WHERE status <> ALL($1))
		FROM expenses
	`, r.settledExpense).Scan(&s.ExpenseTotal, &s.PendingExpenseCount)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses: %w", err)
	}

	err = r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM accounts WHERE is_active = TRUE`,
	).Scan(&s.AccountBalanceTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to sum account balances: %w", err)
	}

	return &s, nil
}
