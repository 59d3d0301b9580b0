package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a project cost moving through the submitted -> approved ->
// paid workflow (or to rejected). Once a paid-equivalent status is reached
// its net amount is reflected in the linked account's balance; later edits
// to amount or account re-trigger delta computation.
type Expense struct {
	ID           int64            `json:"id"`
	Reference    string           `json:"reference"`
	ProjectCode  string           `json:"project_code"`
	Category     string           `json:"category"`
	BaseAmount   decimal.Decimal  `json:"base_amount"`
	NetAmount    decimal.Decimal  `json:"net_amount"`
	Status       string           `json:"status"`
	AccountID    *int64           `json:"account_id,omitempty"`
	ApprovedBy   *string          `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time       `json:"approved_at,omitempty"`
	RejectReason *string          `json:"reject_reason,omitempty"` // set only when status = rejected
	PaymentDate  *time.Time       `json:"payment_date,omitempty"`
	Description  *string          `json:"description,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// RecordState projects the reconciliation-relevant fields.
func (e *Expense) RecordState() RecordState {
	return RecordState{
		Kind:      KindExpense,
		Status:    e.Status,
		Amount:    e.NetAmount,
		AccountID: e.AccountID,
	}
}
