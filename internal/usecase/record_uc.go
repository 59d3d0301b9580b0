package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-service/internal/domain"
	"finance-service/internal/pub"
	"finance-service/internal/repository"
	"finance-service/internal/xerrors"
	"finance-service/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordUsecase is the Atomic Applier: every record mutation and its
// derived balance deltas commit as one transaction, or none of them do.
//
// Mutations follow a fixed shape: read the previous state, resolve the
// delta plan (blocking conditions surface here, before any transaction),
// then inside one transaction lock the record row, verify it still matches
// the resolved snapshot, persist the mutation, lock the involved account
// rows in ascending id order, and apply each delta.
type RecordUsecase struct {
	expenses repository.ExpenseRepository
	incomes  repository.IncomeRepository
	accounts repository.AccountRepository
	resolver *TransitionResolver
	refs     *utils.ReferenceGenerator
	events   *pub.RecordEventPublisher // optional
	logger   *zap.Logger
}

func NewRecordUsecase(
	expenses repository.ExpenseRepository,
	incomes repository.IncomeRepository,
	accounts repository.AccountRepository,
	resolver *TransitionResolver,
	events *pub.RecordEventPublisher,
	logger *zap.Logger,
) *RecordUsecase {
	return &RecordUsecase{
		expenses: expenses,
		incomes:  incomes,
		accounts: accounts,
		resolver: resolver,
		refs:     utils.NewReferenceGenerator(),
		events:   events,
		logger:   logger,
	}
}

// ===============================
// INPUTS
// ===============================

type CreateExpenseInput struct {
	ProjectCode string
	Category    string
	BaseAmount  decimal.Decimal
	NetAmount   decimal.Decimal
	Status      *string
	AccountID   *int64
	Description *string
}

type CreateIncomeInput struct {
	ProjectCode string
	Amount      decimal.Decimal
	DueDate     time.Time
	Status      *string
	AccountID   *int64
	Attachments []AttachmentInput
}

type AttachmentInput struct {
	Filename string
	Path     string
	Source   string
}

type StatusUpdateInput struct {
	Status       string
	Approver     *string
	RejectReason *string
	PaymentDate  *time.Time
}

type ExpensePatch struct {
	ProjectCode *string
	Category    *string
	BaseAmount  *decimal.Decimal
	NetAmount   *decimal.Decimal
	AccountID   *int64
	Description *string
}

type IncomePatch struct {
	ProjectCode *string
	Amount      *decimal.Decimal
	DueDate     *time.Time
	AccountID   *int64
}

// ===============================
// EXPENSES
// ===============================

func (uc *RecordUsecase) CreateExpense(ctx context.Context, in CreateExpenseInput) (*domain.Expense, error) {
	change := domain.RecordChange{
		Status:    in.Status,
		Amount:    &in.NetAmount,
		AccountID: in.AccountID,
	}
	plan, err := uc.resolver.Resolve(ctx, domain.KindExpense, nil, change)
	if err != nil {
		return nil, err
	}

	e := &domain.Expense{
		Reference:   uc.refs.ExpenseReference(),
		ProjectCode: in.ProjectCode,
		Category:    in.Category,
		BaseAmount:  in.BaseAmount,
		NetAmount:   plan.NewState.Amount,
		Status:      plan.NewState.Status,
		AccountID:   plan.NewState.AccountID,
		Description: in.Description,
	}
	if uc.resolver.Vocabulary(domain.KindExpense).IsAffecting(e.Status) {
		now := time.Now()
		e.PaymentDate = &now
	}

	err = uc.withTx(ctx, func(tx pgx.Tx) error {
		if err := uc.expenses.Create(ctx, tx, e); err != nil {
			return err
		}
		return uc.applyPlan(ctx, tx, plan)
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, "record.created", domain.KindExpense, e.ID, e.Reference, e.Status, plan)
	return e, nil
}

func (uc *RecordUsecase) GetExpense(ctx context.Context, id int64) (*domain.Expense, error) {
	return uc.expenses.GetByID(ctx, id)
}

func (uc *RecordUsecase) ListExpensesByProject(ctx context.Context, projectCode string) ([]*domain.Expense, error) {
	return uc.expenses.ListByProject(ctx, projectCode)
}

func (uc *RecordUsecase) UpdateExpenseStatus(ctx context.Context, id int64, in StatusUpdateInput) (*domain.Expense, error) {
	if in.Status == domain.ExpenseStatusRejected && (in.RejectReason == nil || *in.RejectReason == "") {
		return nil, fmt.Errorf("rejection requires a reason: %w", xerrors.ErrReconciliation)
	}

	prev, err := uc.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prevState := prev.RecordState()

	plan, err := uc.resolver.Resolve(ctx, domain.KindExpense, &prevState, domain.RecordChange{Status: &in.Status})
	if err != nil {
		return nil, err
	}

	var updated *domain.Expense
	err = uc.withTx(ctx, func(tx pgx.Tx) error {
		cur, err := uc.expenses.GetByIDWithLock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !cur.RecordState().SameReconciliation(prevState) {
			return fmt.Errorf("expense %d changed during resolve: %w", id, xerrors.ErrPersistence)
		}

		cur.Status = plan.NewState.Status
		cur.AccountID = plan.NewState.AccountID
		uc.applyExpenseStatusMetadata(cur, in)

		if err := uc.expenses.Update(ctx, tx, cur); err != nil {
			return err
		}
		if err := uc.applyPlan(ctx, tx, plan); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, "record.reconciled", domain.KindExpense, updated.ID, updated.Reference, updated.Status, plan)
	return updated, nil
}

// applyExpenseStatusMetadata records the workflow side-data each status
// carries. The reject reason exists only while the record is rejected.
func (uc *RecordUsecase) applyExpenseStatusMetadata(e *domain.Expense, in StatusUpdateInput) {
	e.RejectReason = nil

	switch {
	case in.Status == domain.ExpenseStatusApproved:
		now := time.Now()
		e.ApprovedBy = in.Approver
		e.ApprovedAt = &now
	case in.Status == domain.ExpenseStatusRejected:
		e.RejectReason = in.RejectReason
	case uc.resolver.Vocabulary(domain.KindExpense).IsAffecting(in.Status):
		if in.PaymentDate != nil {
			e.PaymentDate = in.PaymentDate
		} else if e.PaymentDate == nil {
			now := time.Now()
			e.PaymentDate = &now
		}
	}
}

// UpdateExpense edits record fields. Amount or account changes on a paid
// expense walk the adjust path: reversal of the old delta and application
// of the new one in the same transaction.
func (uc *RecordUsecase) UpdateExpense(ctx context.Context, id int64, patch ExpensePatch) (*domain.Expense, error) {
	prev, err := uc.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prevState := prev.RecordState()

	plan, err := uc.resolver.Resolve(ctx, domain.KindExpense, &prevState, domain.RecordChange{
		Amount:    patch.NetAmount,
		AccountID: patch.AccountID,
	})
	if err != nil {
		return nil, err
	}

	var updated *domain.Expense
	err = uc.withTx(ctx, func(tx pgx.Tx) error {
		cur, err := uc.expenses.GetByIDWithLock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !cur.RecordState().SameReconciliation(prevState) {
			return fmt.Errorf("expense %d changed during resolve: %w", id, xerrors.ErrPersistence)
		}

		cur.NetAmount = plan.NewState.Amount
		cur.AccountID = plan.NewState.AccountID
		if patch.ProjectCode != nil {
			cur.ProjectCode = *patch.ProjectCode
		}
		if patch.Category != nil {
			cur.Category = *patch.Category
		}
		if patch.BaseAmount != nil {
			cur.BaseAmount = *patch.BaseAmount
		}
		if patch.Description != nil {
			cur.Description = patch.Description
		}

		if err := uc.expenses.Update(ctx, tx, cur); err != nil {
			return err
		}
		if err := uc.applyPlan(ctx, tx, plan); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, "record.reconciled", domain.KindExpense, updated.ID, updated.Reference, updated.Status, plan)
	return updated, nil
}

func (uc *RecordUsecase) DeleteExpense(ctx context.Context, id int64) error {
	prev, err := uc.expenses.GetByID(ctx, id)
	if err != nil {
		return err
	}

	plan, err := uc.resolver.ResolveRemoval(prev.RecordState())
	if err != nil {
		return err
	}

	err = uc.withTx(ctx, func(tx pgx.Tx) error {
		cur, err := uc.expenses.GetByIDWithLock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !cur.RecordState().SameReconciliation(prev.RecordState()) {
			return fmt.Errorf("expense %d changed during resolve: %w", id, xerrors.ErrPersistence)
		}
		if err := uc.applyPlan(ctx, tx, plan); err != nil {
			return err
		}
		return uc.expenses.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	uc.publish(ctx, "record.deleted", domain.KindExpense, prev.ID, prev.Reference, prev.Status, plan)
	return nil
}

// ===============================
// INCOMES
// ===============================

func (uc *RecordUsecase) CreateIncome(ctx context.Context, in CreateIncomeInput) (*domain.Income, error) {
	change := domain.RecordChange{
		Status:    in.Status,
		Amount:    &in.Amount,
		AccountID: in.AccountID,
	}
	plan, err := uc.resolver.Resolve(ctx, domain.KindIncome, nil, change)
	if err != nil {
		return nil, err
	}

	i := &domain.Income{
		Reference:   uc.refs.IncomeReference(),
		ProjectCode: in.ProjectCode,
		Amount:      plan.NewState.Amount,
		DueDate:     in.DueDate,
		Status:      plan.NewState.Status,
		AccountID:   plan.NewState.AccountID,
	}
	for _, att := range in.Attachments {
		i.Attachments = append(i.Attachments, &domain.IncomeAttachment{
			Filename: att.Filename,
			Path:     att.Path,
			Source:   att.Source,
		})
	}

	err = uc.withTx(ctx, func(tx pgx.Tx) error {
		if err := uc.incomes.Create(ctx, tx, i); err != nil {
			return err
		}
		return uc.applyPlan(ctx, tx, plan)
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, "record.created", domain.KindIncome, i.ID, i.Reference, i.Status, plan)
	return i, nil
}

func (uc *RecordUsecase) GetIncome(ctx context.Context, id int64) (*domain.Income, error) {
	return uc.incomes.GetByID(ctx, id)
}

func (uc *RecordUsecase) ListIncomesByProject(ctx context.Context, projectCode string) ([]*domain.Income, error) {
	return uc.incomes.ListByProject(ctx, projectCode)
}

func (uc *RecordUsecase) UpdateIncomeStatus(ctx context.Context, id int64, in StatusUpdateInput) (*domain.Income, error) {
	prev, err := uc.incomes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prevState := prev.RecordState()

	plan, err := uc.resolver.Resolve(ctx, domain.KindIncome, &prevState, domain.RecordChange{Status: &in.Status})
	if err != nil {
		return nil, err
	}

	var updated *domain.Income
	err = uc.withTx(ctx, func(tx pgx.Tx) error {
		cur, err := uc.incomes.GetByIDWithLock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !cur.RecordState().SameReconciliation(prevState) {
			return fmt.Errorf("income %d changed during resolve: %w", id, xerrors.ErrPersistence)
		}

		cur.Status = plan.NewState.Status
		cur.AccountID = plan.NewState.AccountID

		if err := uc.incomes.Update(ctx, tx, cur); err != nil {
			return err
		}
		if err := uc.applyPlan(ctx, tx, plan); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, "record.reconciled", domain.KindIncome, updated.ID, updated.Reference, updated.Status, plan)
	return updated, nil
}

func (uc *RecordUsecase) UpdateIncome(ctx context.Context, id int64, patch IncomePatch) (*domain.Income, error) {
	prev, err := uc.incomes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prevState := prev.RecordState()

	plan, err := uc.resolver.Resolve(ctx, domain.KindIncome, &prevState, domain.RecordChange{
		Amount:    patch.Amount,
		AccountID: patch.AccountID,
	})
	if err != nil {
		return nil, err
	}

	var updated *domain.Income
	err = uc.withTx(ctx, func(tx pgx.Tx) error {
		cur, err := uc.incomes.GetByIDWithLock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !cur.RecordState().SameReconciliation(prevState) {
			return fmt.Errorf("income %d changed during resolve: %w", id, xerrors.ErrPersistence)
		}

		cur.Amount = plan.NewState.Amount
		cur.AccountID = plan.NewState.AccountID
		if patch.ProjectCode != nil {
			cur.ProjectCode = *patch.ProjectCode
		}
		if patch.DueDate != nil {
			cur.DueDate = *patch.DueDate
		}

		if err := uc.incomes.Update(ctx, tx, cur); err != nil {
			return err
		}
		if err := uc.applyPlan(ctx, tx, plan); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, "record.reconciled", domain.KindIncome, updated.ID, updated.Reference, updated.Status, plan)
	return updated, nil
}

func (uc *RecordUsecase) DeleteIncome(ctx context.Context, id int64) error {
	prev, err := uc.incomes.GetByID(ctx, id)
	if err != nil {
		return err
	}

	plan, err := uc.resolver.ResolveRemoval(prev.RecordState())
	if err != nil {
		return err
	}

	err = uc.withTx(ctx, func(tx pgx.Tx) error {
		cur, err := uc.incomes.GetByIDWithLock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !cur.RecordState().SameReconciliation(prev.RecordState()) {
			return fmt.Errorf("income %d changed during resolve: %w", id, xerrors.ErrPersistence)
		}
		if err := uc.applyPlan(ctx, tx, plan); err != nil {
			return err
		}
		return uc.incomes.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	uc.publish(ctx, "record.deleted", domain.KindIncome, prev.ID, prev.Reference, prev.Status, plan)
	return nil
}

func (uc *RecordUsecase) AddIncomeAttachment(ctx context.Context, incomeID int64, in AttachmentInput) (*domain.IncomeAttachment, error) {
	if _, err := uc.incomes.GetByID(ctx, incomeID); err != nil {
		return nil, err
	}

	att := &domain.IncomeAttachment{
		IncomeID: incomeID,
		Filename: in.Filename,
		Path:     in.Path,
		Source:   in.Source,
	}
	if err := uc.incomes.AddAttachment(ctx, att); err != nil {
		return nil, classifyStorageErr(err)
	}
	return att, nil
}

// ===============================
// TRANSACTION PLUMBING
// ===============================

// withTx runs fn inside one transaction. Rollback is deferred so any
// failure, including a panic, releases locks and discards every write.
func (uc *RecordUsecase) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
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

// applyPlan locks every involved account row in ascending id order, then
// applies the deltas in plan order. Consistent lock order keeps two
// concurrent adjust plans from deadlocking each other.
func (uc *RecordUsecase) applyPlan(ctx context.Context, tx pgx.Tx, plan *domain.DeltaPlan) error {
	if plan.Empty() {
		return nil
	}

	for _, id := range plan.AccountIDs() {
		if _, err := uc.accounts.GetByIDWithLock(ctx, tx, id); err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return fmt.Errorf("account %d: %w", id, xerrors.ErrConstraint)
			}
			return err
		}
	}

	for _, d := range plan.Deltas {
		if err := uc.accounts.AdjustBalance(ctx, tx, d.AccountID, d.Amount); err != nil {
			return err
		}
	}
	return nil
}

// classifyStorageErr maps raw storage failures onto the error taxonomy.
// Already-classified errors pass through untouched.
func classifyStorageErr(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		xerrors.ErrNotFound, xerrors.ErrInvalidAmount, xerrors.ErrUnknownStatus,
		xerrors.ErrReconciliation, xerrors.ErrConstraint, xerrors.ErrPersistence,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if xerrors.IsConstraintViolation(err) {
		return fmt.Errorf("%s: %w", err.Error(), xerrors.ErrConstraint)
	}
	return fmt.Errorf("%s: %w", err.Error(), xerrors.ErrPersistence)
}

func (uc *RecordUsecase) publish(ctx context.Context, eventType string, kind domain.RecordKind, id int64, reference, status string, plan *domain.DeltaPlan) {
	if uc.events == nil {
		return
	}
	_ = uc.events.Publish(ctx, &pub.RecordEvent{
		EventType: eventType,
		Kind:      kind,
		RecordID:  id,
		Reference: reference,
		Status:    status,
		Deltas:    plan.Deltas,
	})
}
