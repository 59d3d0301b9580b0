package usecase

import (
	"context"
	"testing"

	"finance-service/internal/domain"
	"finance-service/internal/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(store *fakeStore, extraPaid ...string) *TransitionResolver {
	return NewTransitionResolver(
		domain.DefaultExpenseVocabulary(extraPaid...),
		domain.DefaultIncomeVocabulary(),
		store,
	)
}

func TestResolveCreationDefaultsToInitialStatus(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	plan, err := r.Resolve(context.Background(), domain.KindExpense, nil, domain.RecordChange{
		Amount: ptr(dec("150")),
	})
	require.NoError(t, err)

	assert.True(t, plan.Empty(), "submitted expense must not touch balances")
	assert.Equal(t, domain.ExpenseStatusSubmitted, plan.NewState.Status)
}

func TestResolveCreationInAffectingStatus(t *testing.T) {
	store := newFakeStore()
	acct := store.addAccount(domain.Account{Name: "ops", IsPrimary: true, IsActive: true})
	r := newTestResolver(store)

	plan, err := r.Resolve(context.Background(), domain.KindExpense, nil, domain.RecordChange{
		Status: ptr(domain.ExpenseStatusPaid),
		Amount: ptr(dec("150")),
	})
	require.NoError(t, err)

	require.Len(t, plan.Deltas, 1)
	assert.Equal(t, acct.ID, plan.Deltas[0].AccountID)
	assert.True(t, plan.Deltas[0].Amount.Equal(dec("-150")), "expense debits")
	require.NotNil(t, plan.NewState.AccountID)
	assert.Equal(t, acct.ID, *plan.NewState.AccountID, "resolved account persisted on record")
}

func TestResolveIncomeCreditsOnReceipt(t *testing.T) {
	store := newFakeStore()
	acct := store.addAccount(domain.Account{Name: "ops", IsPrimary: true, IsActive: true})
	r := newTestResolver(store)

	prev := domain.RecordState{Kind: domain.KindIncome, Status: domain.IncomeStatusInvoiced, Amount: dec("900")}
	plan, err := r.Resolve(context.Background(), domain.KindIncome, &prev, domain.RecordChange{
		Status: ptr(domain.IncomeStatusReceived),
	})
	require.NoError(t, err)

	require.Len(t, plan.Deltas, 1)
	assert.Equal(t, acct.ID, plan.Deltas[0].AccountID)
	assert.True(t, plan.Deltas[0].Amount.Equal(dec("900")), "income credits")
}

func TestResolveReversalOnLeavingAffectingStatus(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	prev := domain.RecordState{
		Kind: domain.KindExpense, Status: domain.ExpenseStatusPaid,
		Amount: dec("200"), AccountID: ptr(int64(7)),
	}
	plan, err := r.Resolve(context.Background(), domain.KindExpense, &prev, domain.RecordChange{
		Status: ptr(domain.ExpenseStatusRejected),
	})
	require.NoError(t, err)

	require.Len(t, plan.Deltas, 1)
	assert.Equal(t, int64(7), plan.Deltas[0].AccountID)
	assert.True(t, plan.Deltas[0].Amount.Equal(dec("200")), "reversal flips the applied debit")
}

func TestResolveAdjustPathReversalThenApplication(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	prev := domain.RecordState{
		Kind: domain.KindExpense, Status: domain.ExpenseStatusPaid,
		Amount: dec("200"), AccountID: ptr(int64(3)),
	}
	plan, err := r.Resolve(context.Background(), domain.KindExpense, &prev, domain.RecordChange{
		Amount:    ptr(dec("350")),
		AccountID: ptr(int64(5)),
	})
	require.NoError(t, err)

	require.Len(t, plan.Deltas, 2)
	assert.True(t, plan.Deltas[0].Amount.Equal(dec("200")), "reversal comes first")
	assert.Equal(t, int64(3), plan.Deltas[0].AccountID)
	assert.True(t, plan.Deltas[1].Amount.Equal(dec("-350")))
	assert.Equal(t, int64(5), plan.Deltas[1].AccountID)

	assert.Equal(t, []int64{3, 5}, plan.AccountIDs(), "lock order is ascending")
}

func TestResolveIdenticalResubmitIsNoop(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	prev := domain.RecordState{
		Kind: domain.KindExpense, Status: domain.ExpenseStatusPaid,
		Amount: dec("200"), AccountID: ptr(int64(3)),
	}
	plan, err := r.Resolve(context.Background(), domain.KindExpense, &prev, domain.RecordChange{
		Status: ptr(domain.ExpenseStatusPaid),
	})
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestResolveNonAffectingEditCarriesNoDeltas(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	prev := domain.RecordState{Kind: domain.KindExpense, Status: domain.ExpenseStatusApproved, Amount: dec("200")}
	plan, err := r.Resolve(context.Background(), domain.KindExpense, &prev, domain.RecordChange{
		Amount: ptr(dec("999")),
	})
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestResolveUnknownStatusBlocks(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	_, err := r.Resolve(context.Background(), domain.KindExpense, nil, domain.RecordChange{
		Status: ptr("disbursed"),
		Amount: ptr(dec("10")),
	})
	assert.ErrorIs(t, err, xerrors.ErrUnknownStatus)
}

func TestResolveCorruptPersistedStatusBlocks(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	prev := domain.RecordState{Kind: domain.KindExpense, Status: "archived", Amount: dec("10")}
	_, err := r.Resolve(context.Background(), domain.KindExpense, &prev, domain.RecordChange{
		Status: ptr(domain.ExpenseStatusApproved),
	})
	assert.ErrorIs(t, err, xerrors.ErrUnknownStatus)
}

func TestResolveRejectsNonPositiveAmounts(t *testing.T) {
	store := newFakeStore()
	store.addAccount(domain.Account{Name: "ops", IsPrimary: true, IsActive: true})
	r := newTestResolver(store)

	_, err := r.Resolve(context.Background(), domain.KindExpense, nil, domain.RecordChange{
		Amount: ptr(dec("0")),
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidAmount)

	prev := domain.RecordState{Kind: domain.KindIncome, Status: domain.IncomeStatusPending, Amount: dec("-5")}
	_, err = r.Resolve(context.Background(), domain.KindIncome, &prev, domain.RecordChange{
		Status: ptr(domain.IncomeStatusReceived),
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidAmount)
}

func TestResolveNoPrimaryAccountBlocks(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	_, err := r.Resolve(context.Background(), domain.KindExpense, nil, domain.RecordChange{
		Status: ptr(domain.ExpenseStatusPaid),
		Amount: ptr(dec("50")),
	})
	assert.ErrorIs(t, err, xerrors.ErrReconciliation)
}

func TestResolveExplicitAccountSkipsPrimaryLookup(t *testing.T) {
	store := newFakeStore() // no primary configured
	r := newTestResolver(store)

	plan, err := r.Resolve(context.Background(), domain.KindExpense, nil, domain.RecordChange{
		Status:    ptr(domain.ExpenseStatusPaid),
		Amount:    ptr(dec("50")),
		AccountID: ptr(int64(42)),
	})
	require.NoError(t, err)
	require.Len(t, plan.Deltas, 1)
	assert.Equal(t, int64(42), plan.Deltas[0].AccountID)
}

func TestResolveExtraPaidEquivalentStatus(t *testing.T) {
	store := newFakeStore()
	store.addAccount(domain.Account{Name: "ops", IsPrimary: true, IsActive: true})
	r := newTestResolver(store, "reimbursed")

	plan, err := r.Resolve(context.Background(), domain.KindExpense, nil, domain.RecordChange{
		Status: ptr("reimbursed"),
		Amount: ptr(dec("80")),
	})
	require.NoError(t, err)
	require.Len(t, plan.Deltas, 1)
	assert.True(t, plan.Deltas[0].Amount.Equal(dec("-80")))
}

func TestResolveRemoval(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	paid := domain.RecordState{
		Kind: domain.KindExpense, Status: domain.ExpenseStatusPaid,
		Amount: dec("120"), AccountID: ptr(int64(4)),
	}
	plan, err := r.ResolveRemoval(paid)
	require.NoError(t, err)
	require.Len(t, plan.Deltas, 1)
	assert.True(t, plan.Deltas[0].Amount.Equal(dec("120")))

	submitted := domain.RecordState{Kind: domain.KindExpense, Status: domain.ExpenseStatusSubmitted, Amount: dec("120")}
	plan, err = r.ResolveRemoval(submitted)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}
