package repayment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table: loan_repayments. Reference is the caller's idempotency key.
type Repayment struct {
	ID            uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	RepaymentID   string          `gorm:"column:repayment_id;size:32;not null;uniqueIndex:ux_loan_repayments_repayment_id"`
	ApplicationID uint64          `gorm:"column:application_id;not null;uniqueIndex:ux_loan_repayments_application_reference,priority:1"`
	Reference     string          `gorm:"column:reference;size:64;not null;uniqueIndex:ux_loan_repayments_application_reference,priority:2"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null"`
	PaidOn        time.Time       `gorm:"column:paid_on;not null"`
	LedgerPosted  bool            `gorm:"column:ledger_posted;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Repayment) TableName() string { return "loan_repayments" }
