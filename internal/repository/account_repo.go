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
	"github.com/shopspring/decimal"
)

// AccountRepository is the Account Store: balances, the primary flag, and
// the row locks the applier serializes on.
type AccountRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error
	GetByID(ctx context.Context, accountID int64) (*domain.Account, error)
	GetByIDWithLock(ctx context.Context, tx pgx.Tx, accountID int64) (*domain.Account, error)
	GetPrimary(ctx context.Context) (*domain.Account, error)
	List(ctx context.Context, f *domain.AccountFilter) ([]*domain.Account, error)

	// AdjustBalance applies one signed delta. Callable only with a live
	// transaction whose account row lock is already held.
	AdjustBalance(ctx context.Context, tx pgx.Tx, accountID int64, delta decimal.Decimal) error

	// SetPrimary makes accountID the sole primary, clearing the flag on
	// every other account in the same transaction.
	SetPrimary(ctx context.Context, tx pgx.Tx, accountID int64) error

	// SoftDelete marks the account inactive. Balance is kept, linked
	// records are not cascaded.
	SoftDelete(ctx context.Context, accountID int64) error
}

type accountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepo(db *pgxpool.Pool) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

const baseAccountQuery = `
	SELECT id, name, account_type, balance, is_primary, is_active, created_at, updated_at
	FROM accounts`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.Name, &a.AccountType, &a.Balance,
		&a.IsPrimary, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &a, nil
}

func (r *accountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	query := `
		INSERT INTO accounts (name, account_type, balance, is_primary, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	err := tx.QueryRow(ctx, query,
		a.Name, a.AccountType, a.Balance, a.IsPrimary, now,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	a.IsActive = true
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, baseAccountQuery+` WHERE id = $1`, accountID)
	return scanAccount(row)
}

// GetByIDWithLock fetches the account with a pessimistic lock
// (SELECT FOR UPDATE) so concurrent balance writes serialize on the row.
func (r *accountRepo) GetByIDWithLock(ctx context.Context, tx pgx.Tx, accountID int64) (*domain.Account, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil for locked query")
	}

	row := tx.QueryRow(ctx, baseAccountQuery+` WHERE id = $1 FOR UPDATE`, accountID)
	return scanAccount(row)
}

// GetPrimary returns the single account holding the primary flag.
// xerrors.ErrNotFound when no active account is primary.
func (r *accountRepo) GetPrimary(ctx context.Context) (*domain.Account, error) {
	query := baseAccountQuery + `
		WHERE is_primary = TRUE AND is_active = TRUE
		ORDER BY id
		LIMIT 1`

	row := r.db.QueryRow(ctx, query)
	return scanAccount(row)
}

func (r *accountRepo) List(ctx context.Context, f *domain.AccountFilter) ([]*domain.Account, error) {
	query := baseAccountQuery + ` WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if f != nil {
		if f.AccountType != nil {
			query += fmt.Sprintf(" AND account_type = $%d", idx)
			args = append(args, *f.AccountType)
			idx++
		}
		if f.IsPrimary != nil {
			query += fmt.Sprintf(" AND is_primary = $%d", idx)
			args = append(args, *f.IsPrimary)
			idx++
		}
		if f.IsActive != nil {
			query += fmt.Sprintf(" AND is_active = $%d", idx)
			args = append(args, *f.IsActive)
			idx++
		}
	}
	query += " ORDER BY id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var a domain.Account
		err := rows.Scan(
			&a.ID, &a.Name, &a.AccountType, &a.Balance,
			&a.IsPrimary, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

func (r *accountRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, accountID int64, delta decimal.Decimal) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = $2
		WHERE id = $3
	`

	cmdTag, err := tx.Exec(ctx, query, delta, time.Now(), accountID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *accountRepo) SetPrimary(ctx context.Context, tx pgx.Tx, accountID int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}

	// Clear every other primary flag first. Handles corrupt data with
	// multiple primaries, not just the expected single holder.
	_, err := tx.Exec(ctx,
		`UPDATE accounts SET is_primary = FALSE, updated_at = $1 WHERE is_primary = TRUE AND id <> $2`,
		time.Now(), accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear primary flags: %w", err)
	}

	cmdTag, err := tx.Exec(ctx,
		`UPDATE accounts SET is_primary = TRUE, updated_at = $1 WHERE id = $2 AND is_active = TRUE`,
		time.Now(), accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to set primary flag: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *accountRepo) SoftDelete(ctx context.Context, accountID int64) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE, is_primary = FALSE, updated_at = $1
		WHERE id = $2 AND is_active = TRUE
	`

	cmdTag, err := r.db.Exec(ctx, query, time.Now(), accountID)
	if err != nil {
		return fmt.Errorf("failed to soft delete account: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
