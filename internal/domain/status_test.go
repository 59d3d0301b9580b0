package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestExpenseVocabulary(t *testing.T) {
	v := DefaultExpenseVocabulary()

	assert.Equal(t, ExpenseStatusSubmitted, v.Initial())
	assert.True(t, v.Knows(ExpenseStatusRejected))
	assert.False(t, v.Knows("archived"))

	assert.True(t, v.IsAffecting(ExpenseStatusPaid))
	assert.False(t, v.IsAffecting(ExpenseStatusApproved))
	assert.False(t, v.IsAffecting(ExpenseStatusRejected))
}

func TestExpenseVocabularyExtraPaidLabels(t *testing.T) {
	v := DefaultExpenseVocabulary("reimbursed", "settled")

	assert.True(t, v.Knows("reimbursed"))
	assert.True(t, v.IsAffecting("reimbursed"))
	assert.True(t, v.IsAffecting("settled"))
	assert.ElementsMatch(t, []string{"paid", "reimbursed", "settled"}, v.AffectingLabels())
}

func TestIncomeVocabulary(t *testing.T) {
	v := DefaultIncomeVocabulary()

	assert.Equal(t, IncomeStatusPending, v.Initial())
	assert.True(t, v.IsAffecting(IncomeStatusReceived))
	assert.False(t, v.IsAffecting(IncomeStatusInvoiced))
}

func TestSignedAmount(t *testing.T) {
	amt := decimal.RequireFromString("125.50")

	assert.True(t, SignedAmount(KindExpense, amt).Equal(amt.Neg()))
	assert.True(t, SignedAmount(KindIncome, amt).Equal(amt))
}

func TestDeltaPlanAccountIDsAscendingAndDistinct(t *testing.T) {
	p := &DeltaPlan{Deltas: []BalanceDelta{
		{AccountID: 9, Amount: decimal.NewFromInt(1)},
		{AccountID: 3, Amount: decimal.NewFromInt(2)},
		{AccountID: 9, Amount: decimal.NewFromInt(3)},
	}}

	assert.Equal(t, []int64{3, 9}, p.AccountIDs())
}

func TestSameReconciliation(t *testing.T) {
	id := int64(4)
	base := RecordState{Kind: KindExpense, Status: ExpenseStatusPaid, Amount: decimal.NewFromInt(100), AccountID: &id}

	same := base
	otherID := int64(4)
	same.AccountID = &otherID
	assert.True(t, base.SameReconciliation(same), "equal values behind distinct pointers still match")

	changed := base
	changed.Amount = decimal.NewFromInt(101)
	assert.False(t, base.SameReconciliation(changed))

	unlinked := base
	unlinked.AccountID = nil
	assert.False(t, base.SameReconciliation(unlinked))
}
