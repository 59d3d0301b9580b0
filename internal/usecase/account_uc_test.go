package usecase

import (
	"context"
	"testing"

	"finance-service/internal/domain"
	"finance-service/internal/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAccountUsecase(store *fakeStore) *AccountUsecase {
	return NewAccountUsecase(store, nil, zap.NewNop())
}

func TestCreateAccountAsPrimaryDemotesExisting(t *testing.T) {
	store := newFakeStore()
	old := store.addAccount(domain.Account{Name: "old", IsPrimary: true, IsActive: true})
	uc := newTestAccountUsecase(store)

	a, err := uc.Create(context.Background(), CreateAccountInput{
		Name:           "new main",
		AccountType:    "operating",
		InitialBalance: dec("100"),
		IsPrimary:      true,
	})
	require.NoError(t, err)

	primary, err := store.GetPrimary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.ID, primary.ID)

	demoted, err := store.GetByID(context.Background(), old.ID)
	require.NoError(t, err)
	assert.False(t, demoted.IsPrimary)
}

func TestCreateAccountRequiresName(t *testing.T) {
	uc := newTestAccountUsecase(newFakeStore())
	_, err := uc.Create(context.Background(), CreateAccountInput{AccountType: "operating"})
	assert.ErrorIs(t, err, xerrors.ErrConstraint)
}

func TestSetPrimaryRepairsMultiPrimaryState(t *testing.T) {
	store := newFakeStore()
	a := store.addAccount(domain.Account{Name: "a", IsPrimary: true, IsActive: true})
	store.addAccount(domain.Account{Name: "b", IsPrimary: true, IsActive: true})
	uc := newTestAccountUsecase(store)

	require.NoError(t, uc.SetPrimary(context.Background(), a.ID))

	primaries, err := store.List(context.Background(), &domain.AccountFilter{IsPrimary: ptr(true)})
	require.NoError(t, err)
	require.Len(t, primaries, 1)
	assert.Equal(t, a.ID, primaries[0].ID)
}

func TestSoftDeleteKeepsBalanceOnTheBooks(t *testing.T) {
	store := newFakeStore()
	a := store.addAccount(domain.Account{Name: "a", Balance: dec("750"), IsActive: true})
	uc := newTestAccountUsecase(store)

	require.NoError(t, uc.SoftDelete(context.Background(), a.ID))

	got, err := store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.True(t, got.Balance.Equal(dec("750")))
}

func TestGetBalanceReflectsCommittedState(t *testing.T) {
	store := newFakeStore()
	a := store.addAccount(domain.Account{Name: "a", Balance: dec("300"), IsActive: true})
	uc := newTestAccountUsecase(store)

	balance, err := uc.GetBalance(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("300")))

	_, err = uc.GetBalance(context.Background(), 999)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
