// Package ledger is the port to the external savings and accounting system.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrMemberNotFound = errors.New("member not known to ledger")

type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberSuspended MemberStatus = "suspended"
	MemberInactive  MemberStatus = "inactive"
)

type Standing struct {
	Status         MemberStatus
	SavingsBalance decimal.Decimal
}

type Service interface {
	GetMemberStanding(ctx context.Context, memberID string) (*Standing, error)
	CreateDisbursement(ctx context.Context, applicationID string, amount decimal.Decimal) error
	// reference lets the ledger drop duplicate posts of the same repayment.
	ApplyRepayment(ctx context.Context, applicationID string, amount decimal.Decimal, paidOn time.Time, reference string) error
}
