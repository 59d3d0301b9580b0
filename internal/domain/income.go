package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Income is money expected or received for a project. Its amount hits the
// linked account's balance only while the status is "received".
type Income struct {
	ID          int64               `json:"id"`
	Reference   string              `json:"reference"`
	ProjectCode string              `json:"project_code"`
	Amount      decimal.Decimal     `json:"amount"`
	DueDate     time.Time           `json:"due_date"`
	Status      string              `json:"status"`
	AccountID   *int64              `json:"account_id,omitempty"`
	Attachments []*IncomeAttachment `json:"attachments,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// IncomeAttachment is pure file metadata. It plays no reconciliation role.
type IncomeAttachment struct {
	ID       int64  `json:"id"`
	IncomeID int64  `json:"income_id"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Source   string `json:"source"`
}

// RecordState projects the reconciliation-relevant fields.
func (i *Income) RecordState() RecordState {
	return RecordState{
		Kind:      KindIncome,
		Status:    i.Status,
		Amount:    i.Amount,
		AccountID: i.AccountID,
	}
}
