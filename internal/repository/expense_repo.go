package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-service/internal/domain"
	"finance-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpenseRepository is the expense half of the Record Store.
type ExpenseRepository interface {
	Create(ctx context.Context, tx pgx.Tx, e *domain.Expense) error
	GetByID(ctx context.Context, id int64) (*domain.Expense, error)
	// GetByIDWithLock fetches the expense row FOR UPDATE so a transition
	// cannot race another mutation of the same record.
	GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.Expense, error)
	Update(ctx context.Context, tx pgx.Tx, e *domain.Expense) error
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
	ListByProject(ctx context.Context, projectCode string) ([]*domain.Expense, error)
}

type expenseRepo struct {
	db *pgxpool.Pool
}

func NewExpenseRepo(db *pgxpool.Pool) ExpenseRepository {
	return &expenseRepo{db: db}
}

const baseExpenseQuery = `
	SELECT id, reference, project_code, category, base_amount, net_amount, status,
	       account_id, approved_by, approved_at, reject_reason, payment_date,
	       description, created_at, updated_at
	FROM expenses`

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var e domain.Expense
	err := row.Scan(
		&e.ID, &e.Reference, &e.ProjectCode, &e.Category, &e.BaseAmount, &e.NetAmount,
		&e.Status, &e.AccountID, &e.ApprovedBy, &e.ApprovedAt, &e.RejectReason,
		&e.PaymentDate, &e.Description, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}
	return &e, nil
}

func (r *expenseRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.Expense) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	query := `
		INSERT INTO expenses (
			reference, project_code, category, base_amount, net_amount, status,
			account_id, approved_by, approved_at, reject_reason, payment_date,
			description, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	err := tx.QueryRow(ctx, query,
		e.Reference, e.ProjectCode, e.Category, e.BaseAmount, e.NetAmount, e.Status,
		e.AccountID, e.ApprovedBy, e.ApprovedAt, e.RejectReason, e.PaymentDate,
		e.Description, now,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

func (r *expenseRepo) GetByID(ctx context.Context, id int64) (*domain.Expense, error) {
	row := r.db.QueryRow(ctx, baseExpenseQuery+` WHERE id = $1`, id)
	return scanExpense(row)
}

func (r *expenseRepo) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.Expense, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil for locked query")
	}
	row := tx.QueryRow(ctx, baseExpenseQuery+` WHERE id = $1 FOR UPDATE`, id)
	return scanExpense(row)
}

func (r *expenseRepo) Update(ctx context.Context, tx pgx.Tx, e *domain.Expense) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	query := `
		UPDATE expenses
		SET project_code = $1, category = $2, base_amount = $3, net_amount = $4,
		    status = $5, account_id = $6, approved_by = $7, approved_at = $8,
		    reject_reason = $9, payment_date = $10, description = $11, updated_at = $12
		WHERE id = $13
	`

	cmdTag, err := tx.Exec(ctx, query,
		e.ProjectCode, e.Category, e.BaseAmount, e.NetAmount, e.Status,
		e.AccountID, e.ApprovedBy, e.ApprovedAt, e.RejectReason, e.PaymentDate,
		e.Description, time.Now(), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *expenseRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *expenseRepo) ListByProject(ctx context.Context, projectCode string) ([]*domain.Expense, error) {
	rows, err := r.db.Query(ctx, baseExpenseQuery+` WHERE project_code = $1 ORDER BY created_at DESC`, projectCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*domain.Expense
	for rows.Next() {
		var e domain.Expense
		err := rows.Scan(
			&e.ID, &e.Reference, &e.ProjectCode, &e.Category, &e.BaseAmount, &e.NetAmount,
			&e.Status, &e.AccountID, &e.ApprovedBy, &e.ApprovedAt, &e.RejectReason,
			&e.PaymentDate, &e.Description, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense row: %w", err)
		}
		expenses = append(expenses, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense rows: %w", err)
	}
	return expenses, nil
}
