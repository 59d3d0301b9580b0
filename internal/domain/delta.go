package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BalanceDelta is one signed adjustment against an account's balance.
// Expenses carry negative amounts, incomes positive; reversals flip the
// sign of the originally applied delta.
type BalanceDelta struct {
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// DeltaPlan is the ordered adjustment set one record transition requires,
// together with the record state to persist. A plan never holds more than
// one reversal followed by one application.
type DeltaPlan struct {
	Deltas   []BalanceDelta
	NewState RecordState
}

func (p *DeltaPlan) Empty() bool { return len(p.Deltas) == 0 }

// AccountIDs returns the distinct involved account ids in ascending order.
// The applier locks rows in this order to keep lock acquisition consistent
// across concurrent plans.
func (p *DeltaPlan) AccountIDs() []int64 {
	seen := make(map[int64]struct{}, len(p.Deltas))
	ids := make([]int64, 0, len(p.Deltas))
	for _, d := range p.Deltas {
		if _, ok := seen[d.AccountID]; ok {
			continue
		}
		seen[d.AccountID] = struct{}{}
		ids = append(ids, d.AccountID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SignedAmount maps a record amount to its balance effect: expenses debit,
// incomes credit.
func SignedAmount(kind RecordKind, amount decimal.Decimal) decimal.Decimal {
	if kind == KindExpense {
		return amount.Neg()
	}
	return amount
}
