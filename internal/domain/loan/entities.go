package loan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("loan application not found")
	ErrVersionConflict = errors.New("loan application was modified concurrently")
	// ErrOpenApplicationExists is returned by Create when the member
	// already holds a non-terminal application.
	ErrOpenApplicationExists = errors.New("member already has an open loan application")
)

type State string

const (
	StateDraft           State = "draft"
	StatePendingApproval State = "pending_approval"
	StateReturned        State = "returned"
	StateRejected        State = "rejected"
	StateApproved        State = "approved"
	StateDisbursed       State = "disbursed"
	StateRepaying        State = "repaying"
	StateCompleted       State = "completed"
	StateDefaulted       State = "defaulted"
)

// TerminalStates admit no further transitions.
var TerminalStates = []State{StateRejected, StateCompleted, StateDefaulted}

func (s State) Terminal() bool {
	for _, t := range TerminalStates {
		if s == t {
			return true
		}
	}
	return false
}

// Editable reports whether the member may change terms and submit.
func (s State) Editable() bool { return s == StateDraft || s == StateReturned }

// Application is a member's loan request. Financial terms are locked
// whenever the state is not editable.
type Application struct {
	ID            uint64 `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID string `gorm:"column:application_id;size:32;not null;uniqueIndex:ux_loan_applications_application_id" json:"application_id"`
	MemberID      string `gorm:"column:member_id;size:32;not null;index:idx_loan_applications_member_state,priority:1" json:"member_id"`
	ProductCode   string `gorm:"column:product_code;size:32;not null" json:"product_code"`
	// OpenMemberID carries MemberID until the application closes. The
	// unique index allows one open application per member.
	OpenMemberID *string `gorm:"column:open_member_id;size:32;uniqueIndex:ux_loan_applications_open_member" json:"-"`

	Principal          decimal.Decimal `gorm:"column:principal;type:decimal(18,2);not null" json:"principal"`
	TermMonths         int             `gorm:"column:term_months;not null" json:"term_months"`
	MonthlyRate        decimal.Decimal `gorm:"column:monthly_rate;type:decimal(8,6);not null" json:"monthly_rate"`
	TotalInterest      decimal.Decimal `gorm:"column:total_interest;type:decimal(18,2);not null" json:"total_interest"`
	TotalRepayable     decimal.Decimal `gorm:"column:total_repayable;type:decimal(18,2);not null" json:"total_repayable"`
	MonthlyInstallment decimal.Decimal `gorm:"column:monthly_installment;type:decimal(18,2);not null" json:"monthly_installment"`
	RemainingBalance   decimal.Decimal `gorm:"column:remaining_balance;type:decimal(18,2);not null" json:"remaining_balance"`
	Purpose            string          `gorm:"column:purpose;type:text;not null" json:"purpose"`

	State      State `gorm:"column:state;size:24;not null;index:idx_loan_applications_state_stage,priority:1;index:idx_loan_applications_member_state,priority:2" json:"state"`
	StageIndex int   `gorm:"column:stage_index;not null;index:idx_loan_applications_state_stage,priority:2" json:"stage_index"`
	Round      int   `gorm:"column:round;not null" json:"round"`
	Version    int64 `gorm:"column:version;not null" json:"version"`

	SubmittedAt             *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	StateUpdatedAt          time.Time  `gorm:"column:state_updated_at;not null" json:"state_updated_at"`
	ApprovedAt              *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	DisbursementRequestedAt *time.Time `gorm:"column:disbursement_requested_at" json:"disbursement_requested_at,omitempty"`
	DisbursedAt             *time.Time `gorm:"column:disbursed_at" json:"disbursed_at,omitempty"`
	ClosedAt                *time.Time `gorm:"column:closed_at" json:"closed_at,omitempty"`
	CreatedAt               time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Application) TableName() string { return "loan_applications" }

// LockTerms copies computed terms onto the application.
func (a *Application) LockTerms(t Terms) {
	a.Principal = t.Principal
	a.TermMonths = t.TermMonths
	a.MonthlyRate = t.MonthlyRate
	a.TotalInterest = t.TotalInterest
	a.TotalRepayable = t.TotalRepayable
	a.MonthlyInstallment = t.MonthlyInstallment
}

func (a *Application) Terms() Terms {
	return Terms{
		Principal:          a.Principal,
		TermMonths:         a.TermMonths,
		MonthlyRate:        a.MonthlyRate,
		TotalInterest:      a.TotalInterest,
		TotalRepayable:     a.TotalRepayable,
		MonthlyInstallment: a.MonthlyInstallment,
	}
}

// HoldMemberSlot marks the application as the member's open one.
func (a *Application) HoldMemberSlot() {
	m := a.MemberID
	a.OpenMemberID = &m
}

// Transition moves to state to; a terminal state frees the member slot.
func (a *Application) Transition(to State, at time.Time) {
	a.State = to
	a.StateUpdatedAt = at
	if to.Terminal() {
		a.OpenMemberID = nil
	}
}
