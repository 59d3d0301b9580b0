package service

import (
	"context"
	"fmt"

	"finance-service/internal/domain"
	"finance-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultPrimaryAccountName = "Main Account"

// SystemSeeder makes sure the primary-account fallback has somewhere to
// land before the service starts taking traffic.
type SystemSeeder struct {
	accounts repository.AccountRepository
	logger   *zap.Logger
}

func NewSystemSeeder(accounts repository.AccountRepository, logger *zap.Logger) *SystemSeeder {
	return &SystemSeeder{accounts: accounts, logger: logger}
}

// SeedSystem inspects the accounts table and repairs the primary flag:
//   - no accounts at all: create a default primary account with zero balance
//   - more than one primary: keep the lowest id, demote the rest
//   - accounts exist but none is primary: warn only; an operator may be
//     mid-migration and auto-promoting a random account would be worse
func (s *SystemSeeder) SeedSystem(ctx context.Context) error {
	all, err := s.accounts.List(ctx, &domain.AccountFilter{})
	if err != nil {
		return fmt.Errorf("seed: list accounts: %w", err)
	}

	if len(all) == 0 {
		return s.createDefaultPrimary(ctx)
	}

	var primaries []*domain.Account
	for _, a := range all {
		if a.IsPrimary && a.IsActive {
			primaries = append(primaries, a)
		}
	}

	switch {
	case len(primaries) == 1:
		return nil
	case len(primaries) == 0:
		s.logger.Warn("no primary account configured; unlinked records will fail to reconcile",
			zap.Int("account_count", len(all)))
		return nil
	default:
		return s.repairPrimaries(ctx, primaries)
	}
}

func (s *SystemSeeder) createDefaultPrimary(ctx context.Context) error {
	tx, err := s.accounts.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	a := &domain.Account{
		Name:        defaultPrimaryAccountName,
		AccountType: "operating",
		Balance:     decimal.Zero,
		IsPrimary:   true,
		IsActive:    true,
	}
	if err := s.accounts.Create(ctx, tx, a); err != nil {
		return fmt.Errorf("seed: create default account: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}

	s.logger.Info("seeded default primary account",
		zap.Int64("account_id", a.ID),
		zap.String("name", a.Name))
	return nil
}

// repairPrimaries resolves a corrupt multi-primary state. SetPrimary
// demotes every other row in the same statement set, so promoting the
// lowest id once is enough.
func (s *SystemSeeder) repairPrimaries(ctx context.Context, primaries []*domain.Account) error {
	keep := primaries[0]
	for _, a := range primaries[1:] {
		if a.ID < keep.ID {
			keep = a
		}
	}

	tx, err := s.accounts.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.accounts.SetPrimary(ctx, tx, keep.ID); err != nil {
		return fmt.Errorf("seed: repair primary: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}

	s.logger.Warn("repaired multiple primary accounts",
		zap.Int64("kept_account_id", keep.ID),
		zap.Int("demoted", len(primaries)-1))
	return nil
}
