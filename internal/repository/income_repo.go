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

// IncomeRepository is the income half of the Record Store. Attachments are
// stored alongside but never touch reconciliation.
type IncomeRepository interface {
	Create(ctx context.Context, tx pgx.Tx, i *domain.Income) error
	GetByID(ctx context.Context, id int64) (*domain.Income, error)
	GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.Income, error)
	Update(ctx context.Context, tx pgx.Tx, i *domain.Income) error
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
	ListByProject(ctx context.Context, projectCode string) ([]*domain.Income, error)

	AddAttachment(ctx context.Context, att *domain.IncomeAttachment) error
	ListAttachments(ctx context.Context, incomeID int64) ([]*domain.IncomeAttachment, error)
}

type incomeRepo struct {
	db *pgxpool.Pool
}

func NewIncomeRepo(db *pgxpool.Pool) IncomeRepository {
	return &incomeRepo{db: db}
}

const baseIncomeQuery = `
	SELECT id, reference, project_code, amount, due_date, status, account_id,
	       created_at, updated_at
	FROM incomes`

func scanIncome(row pgx.Row) (*domain.Income, error) {
	var i domain.Income
	err := row.Scan(
		&i.ID, &i.Reference, &i.ProjectCode, &i.Amount, &i.DueDate,
		&i.Status, &i.AccountID, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan income: %w", err)
	}
	return &i, nil
}

func (r *incomeRepo) Create(ctx context.Context, tx pgx.Tx, i *domain.Income) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	query := `
		INSERT INTO incomes (reference, project_code, amount, due_date, status, account_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		i.Reference, i.ProjectCode, i.Amount, i.DueDate, i.Status, i.AccountID, time.Now(),
	).Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create income: %w", err)
	}

	for _, att := range i.Attachments {
		att.IncomeID = i.ID
		err := tx.QueryRow(ctx,
			`INSERT INTO income_attachments (income_id, filename, path, source) VALUES ($1, $2, $3, $4) RETURNING id`,
			att.IncomeID, att.Filename, att.Path, att.Source,
		).Scan(&att.ID)
		if err != nil {
			return fmt.Errorf("failed to create income attachment: %w", err)
		}
	}
	return nil
}

func (r *incomeRepo) GetByID(ctx context.Context, id int64) (*domain.Income, error) {
	row := r.db.QueryRow(ctx, baseIncomeQuery+` WHERE id = $1`, id)
	income, err := scanIncome(row)
	if err != nil {
		return nil, err
	}

	income.Attachments, err = r.ListAttachments(ctx, id)
	if err != nil {
		return nil, err
	}
	return income, nil
}

func (r *incomeRepo) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.Income, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil for locked query")
	}
	row := tx.QueryRow(ctx, baseIncomeQuery+` WHERE id = $1 FOR UPDATE`, id)
	return scanIncome(row)
}

func (r *incomeRepo) Update(ctx context.Context, tx pgx.Tx, i *domain.Income) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	query := `
		UPDATE incomes
		SET project_code = $1, amount = $2, due_date = $3, status = $4, account_id = $5, updated_at = $6
		WHERE id = $7
	`

	cmdTag, err := tx.Exec(ctx, query,
		i.ProjectCode, i.Amount, i.DueDate, i.Status, i.AccountID, time.Now(), i.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update income: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *incomeRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	// Attachment rows go with the record. Metadata only, nothing to reverse.
	if _, err := tx.Exec(ctx, `DELETE FROM income_attachments WHERE income_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete income attachments: %w", err)
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM incomes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete income: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *incomeRepo) ListByProject(ctx context.Context, projectCode string) ([]*domain.Income, error) {
	rows, err := r.db.Query(ctx, baseIncomeQuery+` WHERE project_code = $1 ORDER BY due_date DESC`, projectCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query incomes: %w", err)
	}
	defer rows.Close()

	var incomes []*domain.Income
	for rows.Next() {
		var i domain.Income
		err := rows.Scan(
			&i.ID, &i.Reference, &i.ProjectCode, &i.Amount, &i.DueDate,
			&i.Status, &i.AccountID, &i.CreatedAt, &i.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan income row: %w", err)
		}
		incomes = append(incomes, &i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating income rows: %w", err)
	}
	return incomes, nil
}

func (r *incomeRepo) AddAttachment(ctx context.Context, att *domain.IncomeAttachment) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO income_attachments (income_id, filename, path, source) VALUES ($1, $2, $3, $4) RETURNING id`,
		att.IncomeID, att.Filename, att.Path, att.Source,
	).Scan(&att.ID)
	if err != nil {
		return fmt.Errorf("failed to add income attachment: %w", err)
	}
	return nil
}

func (r *incomeRepo) ListAttachments(ctx context.Context, incomeID int64) ([]*domain.IncomeAttachment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, income_id, filename, path, source FROM income_attachments WHERE income_id = $1 ORDER BY id`,
		incomeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query income attachments: %w", err)
	}
	defer rows.Close()

	var atts []*domain.IncomeAttachment
	for rows.Next() {
		var a domain.IncomeAttachment
		if err := rows.Scan(&a.ID, &a.IncomeID, &a.Filename, &a.Path, &a.Source); err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		atts = append(atts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachment rows: %w", err)
	}
	return atts, nil
}
