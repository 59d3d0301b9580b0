package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a financial account whose balance the reconciliation engine
// keeps consistent with record statuses. At most one account carries the
// primary flag at any time.
type Account struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	AccountType string          `json:"account_type"` // bank | cash | card | other
	Balance     decimal.Decimal `json:"balance"`
	IsPrimary   bool            `json:"is_primary"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"-"`
	UpdatedAt   time.Time       `json:"-"`
}

type AccountFilter struct {
	AccountType *string
	IsPrimary   *bool
	IsActive    *bool
}
