package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finance-service/internal/domain"
	"finance-service/internal/repository"
	"finance-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	accountCacheKeyFmt = "finance:account:%d"
	accountCacheTTL    = 5 * time.Minute
)

// AccountUsecase manages account lifecycle. Metadata reads go through a
// short Redis cache; balance reads always hit the database, since cached
// balances would race the reconciliation path.
type AccountUsecase struct {
	accounts repository.AccountRepository
	rdb      *redis.Client // optional
	logger   *zap.Logger
}

func NewAccountUsecase(accounts repository.AccountRepository, rdb *redis.Client, logger *zap.Logger) *AccountUsecase {
	return &AccountUsecase{accounts: accounts, rdb: rdb, logger: logger}
}

type CreateAccountInput struct {
	Name           string
	AccountType    string
	InitialBalance decimal.Decimal
	IsPrimary      bool
}

func (uc *AccountUsecase) Create(ctx context.Context, in CreateAccountInput) (*domain.Account, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("account name required: %w", xerrors.ErrConstraint)
	}

	// Inserted non-primary even when primary is requested: the storage
	// layer enforces a single primary, so the row is promoted after any
	// current holder is demoted.
	a := &domain.Account{
		Name:        in.Name,
		AccountType: in.AccountType,
		Balance:     in.InitialBalance,
		IsActive:    true,
	}

	err := uc.withTx(ctx, func(tx pgx.Tx) error {
		if err := uc.accounts.Create(ctx, tx, a); err != nil {
			return err
		}
		if in.IsPrimary {
			if err := uc.accounts.SetPrimary(ctx, tx, a.ID); err != nil {
				return err
			}
			a.IsPrimary = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (uc *AccountUsecase) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	if cached := uc.cacheGet(ctx, id); cached != nil {
		return cached, nil
	}

	a, err := uc.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.cacheSet(ctx, a)
	return a, nil
}

// GetBalance bypasses the cache: balances move under concurrent
// reconciliation and must always reflect committed state.
func (uc *AccountUsecase) GetBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	a, err := uc.accounts.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Balance, nil
}

func (uc *AccountUsecase) List(ctx context.Context, f *domain.AccountFilter) ([]*domain.Account, error) {
	return uc.accounts.List(ctx, f)
}

func (uc *AccountUsecase) SetPrimary(ctx context.Context, id int64) error {
	err := uc.withTx(ctx, func(tx pgx.Tx) error {
		return uc.accounts.SetPrimary(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	uc.cacheInvalidateAll(ctx, id)
	return nil
}

// SoftDelete deactivates an account. The row and its balance stay on the
// books so historical reconciliation stays explainable.
func (uc *AccountUsecase) SoftDelete(ctx context.Context, id int64) error {
	if err := uc.accounts.SoftDelete(ctx, id); err != nil {
		return classifyStorageErr(err)
	}
	uc.cacheInvalidate(ctx, id)
	return nil
}

func (uc *AccountUsecase) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := uc.accounts.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", err.Error(), xerrors.ErrPersistence)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return classifyStorageErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %s: %w", err.Error(), xerrors.ErrPersistence)
	}
	return nil
}

// ===============================
// CACHE
// ===============================

func (uc *AccountUsecase) cacheGet(ctx context.Context, id int64) *domain.Account {
	if uc.rdb == nil {
		return nil
	}
	raw, err := uc.rdb.Get(ctx, fmt.Sprintf(accountCacheKeyFmt, id)).Bytes()
	if err != nil {
		return nil
	}
	var a domain.Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil
	}
	return &a
}

func (uc *AccountUsecase) cacheSet(ctx context.Context, a *domain.Account) {
	if uc.rdb == nil {
		return
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := uc.rdb.Set(ctx, fmt.Sprintf(accountCacheKeyFmt, a.ID), raw, accountCacheTTL).Err(); err != nil && uc.logger != nil {
		uc.logger.Warn("account cache write failed", zap.Int64("account_id", a.ID), zap.Error(err))
	}
}

func (uc *AccountUsecase) cacheInvalidate(ctx context.Context, id int64) {
	if uc.rdb == nil {
		return
	}
	_ = uc.rdb.Del(ctx, fmt.Sprintf(accountCacheKeyFmt, id)).Err()
}

// cacheInvalidateAll drops the target entry and anything that might hold a
// stale primary flag. SetPrimary demotes some other row we did not load, so
// the cheap correct move is flushing the whole account keyspace entry set.
func (uc *AccountUsecase) cacheInvalidateAll(ctx context.Context, id int64) {
	if uc.rdb == nil {
		return
	}
	uc.cacheInvalidate(ctx, id)

	iter := uc.rdb.Scan(ctx, 0, "finance:account:*", 100).Iterator()
	for iter.Next(ctx) {
		_ = uc.rdb.Del(ctx, iter.Val()).Err()
	}
}
