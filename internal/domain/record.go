package domain

import "github.com/shopspring/decimal"

// RecordState is the slice of a persisted record the resolver reasons
// about: what status it is in, how much it is worth, and where it points.
type RecordState struct {
	Kind      RecordKind
	Status    string
	Amount    decimal.Decimal
	AccountID *int64
}

// SameReconciliation reports whether two states would resolve to the same
// delta plan inputs. Used to detect concurrent modification between the
// resolve step and the locked apply step.
func (s RecordState) SameReconciliation(o RecordState) bool {
	return s.Status == o.Status &&
		s.Amount.Equal(o.Amount) &&
		equalAccountRef(s.AccountID, o.AccountID)
}

// RecordChange is a caller-supplied partial update. Nil fields were not
// provided and keep their previous value.
type RecordChange struct {
	Status    *string
	Amount    *decimal.Decimal
	AccountID *int64
}

func equalAccountRef(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
