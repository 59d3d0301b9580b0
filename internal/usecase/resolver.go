package usecase

import (
	"context"
	"errors"
	"fmt"

	"finance-service/internal/domain"
	"finance-service/internal/xerrors"
)

// PrimaryAccountSource looks up the account used when a record reaching an
// affecting status has none linked. Satisfied by repository.AccountRepository.
type PrimaryAccountSource interface {
	GetPrimary(ctx context.Context) (*domain.Account, error)
}

// TransitionResolver compares a record's previously persisted state with a
// proposed change and computes the balance deltas the transition requires.
// It performs reads only; the Atomic Applier owns every write.
type TransitionResolver struct {
	vocabs   map[domain.RecordKind]*domain.Vocabulary
	accounts PrimaryAccountSource
}

func NewTransitionResolver(expense, income *domain.Vocabulary, accounts PrimaryAccountSource) *TransitionResolver {
	return &TransitionResolver{
		vocabs: map[domain.RecordKind]*domain.Vocabulary{
			domain.KindExpense: expense,
			domain.KindIncome:  income,
		},
		accounts: accounts,
	}
}

func (r *TransitionResolver) Vocabulary(kind domain.RecordKind) *domain.Vocabulary {
	return r.vocabs[kind]
}

// Resolve returns the delta plan for mutating a record of the given kind.
// prev == nil means creation. Blocking conditions (unknown status, bad
// amount, no resolvable account) surface here, before any transaction has
// begun.
func (r *TransitionResolver) Resolve(ctx context.Context, kind domain.RecordKind, prev *domain.RecordState, change domain.RecordChange) (*domain.DeltaPlan, error) {
	v := r.vocabs[kind]
	if v == nil {
		return nil, fmt.Errorf("record kind %q: %w", kind, xerrors.ErrReconciliation)
	}

	next := domain.RecordState{Kind: kind, Status: v.Initial()}
	if prev != nil {
		if !v.Knows(prev.Status) {
			return nil, fmt.Errorf("persisted status %q: %w", prev.Status, xerrors.ErrUnknownStatus)
		}
		next = *prev
	}
	if change.Status != nil {
		next.Status = *change.Status
	}
	if change.Amount != nil {
		next.Amount = *change.Amount
	}
	if change.AccountID != nil {
		next.AccountID = change.AccountID
	}

	if !v.Knows(next.Status) {
		return nil, fmt.Errorf("status %q: %w", next.Status, xerrors.ErrUnknownStatus)
	}

	wasAffecting := prev != nil && v.IsAffecting(prev.Status)
	willAffect := v.IsAffecting(next.Status)

	// Creation always requires a positive amount. On edits a non-positive
	// amount is tolerated only while the record neither leaves nor enters
	// an affecting status: such records never accrued a delta.
	if prev == nil && next.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount %s on creation: %w", next.Amount, xerrors.ErrInvalidAmount)
	}
	if (wasAffecting || willAffect) && next.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount %s on affecting record: %w", next.Amount, xerrors.ErrInvalidAmount)
	}

	var deltas []domain.BalanceDelta

	switch {
	case !wasAffecting && willAffect:
		target, err := r.resolveTargetAccount(ctx, next.AccountID)
		if err != nil {
			return nil, err
		}
		// Persist the resolved account on the record so a later reversal
		// has an audit trail to follow.
		next.AccountID = &target
		deltas = append(deltas, domain.BalanceDelta{
			AccountID: target,
			Amount:    domain.SignedAmount(kind, next.Amount),
		})

	case wasAffecting && !willAffect:
		if prev.AccountID != nil {
			deltas = append(deltas, domain.BalanceDelta{
				AccountID: *prev.AccountID,
				Amount:    domain.SignedAmount(kind, prev.Amount).Neg(),
			})
		}

	case wasAffecting && willAffect:
		if prev.Amount.Equal(next.Amount) && sameAccount(prev.AccountID, next.AccountID) {
			break // identical resubmit, no-op
		}
		if prev.AccountID != nil {
			deltas = append(deltas, domain.BalanceDelta{
				AccountID: *prev.AccountID,
				Amount:    domain.SignedAmount(kind, prev.Amount).Neg(),
			})
		}
		target, err := r.resolveTargetAccount(ctx, next.AccountID)
		if err != nil {
			return nil, err
		}
		next.AccountID = &target
		deltas = append(deltas, domain.BalanceDelta{
			AccountID: target,
			Amount:    domain.SignedAmount(kind, next.Amount),
		})

	default:
		// not affecting -> not affecting: amount and account edits carry
		// no balance effect.
	}

	return &domain.DeltaPlan{Deltas: deltas, NewState: next}, nil
}

// ResolveRemoval plans the deletion of a record: an applied delta must be
// reversed before the row disappears.
func (r *TransitionResolver) ResolveRemoval(prev domain.RecordState) (*domain.DeltaPlan, error) {
	v := r.vocabs[prev.Kind]
	if v == nil {
		return nil, fmt.Errorf("record kind %q: %w", prev.Kind, xerrors.ErrReconciliation)
	}
	if !v.Knows(prev.Status) {
		return nil, fmt.Errorf("persisted status %q: %w", prev.Status, xerrors.ErrUnknownStatus)
	}

	plan := &domain.DeltaPlan{NewState: prev}
	if v.IsAffecting(prev.Status) && prev.AccountID != nil {
		plan.Deltas = append(plan.Deltas, domain.BalanceDelta{
			AccountID: *prev.AccountID,
			Amount:    domain.SignedAmount(prev.Kind, prev.Amount).Neg(),
		})
	}
	return plan, nil
}

// resolveTargetAccount is the named fallback step: explicit (or inherited)
// account first, else the unique primary account. No primary configured is
// a blocking configuration error, not a silent null.
func (r *TransitionResolver) resolveTargetAccount(ctx context.Context, accountID *int64) (int64, error) {
	if accountID != nil {
		return *accountID, nil
	}

	primary, err := r.accounts.GetPrimary(ctx)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return 0, fmt.Errorf("no account linked and no primary account configured: %w", xerrors.ErrReconciliation)
		}
		return 0, fmt.Errorf("failed to resolve primary account: %w", err)
	}
	return primary.ID, nil
}

func sameAccount(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
