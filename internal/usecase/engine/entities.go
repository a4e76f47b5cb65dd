package engine

import (
	"time"

	"sacco-workflow/internal/domain/approval"
	"sacco-workflow/internal/domain/loan"
	"sacco-workflow/internal/domain/repayment"
	"sacco-workflow/internal/domain/workflow"

	"github.com/shopspring/decimal"
)

// Actor is the already-authenticated caller.
type Actor struct {
	ID   string
	Role workflow.Role
}

type CreateDraftInput struct {
	MemberID    string
	ProductCode string
	Principal   decimal.Decimal
	TermMonths  int
	Purpose     string
}

// UpdateDraftInput changes only the non-nil fields.
type UpdateDraftInput struct {
	ApplicationID   string
	ActorID         string
	ProductCode     *string
	Principal       *decimal.Decimal
	TermMonths      *int
	Purpose         *string
	ExpectedVersion int64
}

type SubmitInput struct {
	ApplicationID   string
	ActorID         string
	ExpectedVersion int64
}

type DecideInput struct {
	ApplicationID   string
	Decider         Actor
	Outcome         approval.Outcome
	Remarks         string
	ExpectedVersion int64
}

type DisburseInput struct {
	ApplicationID   string
	Actor           Actor
	ExpectedVersion int64
}

type RepaymentInput struct {
	ApplicationID string
	Actor         Actor
	Amount        decimal.Decimal
	PaidOn        time.Time
	// Reference makes retries safe. Generated when empty.
	Reference       string
	ExpectedVersion int64
}

type DefaultInput struct {
	ApplicationID   string
	Actor           Actor
	Remarks         string
	ExpectedVersion int64
}

type ApplicationDTO struct {
	ApplicationID      string          `json:"application_id"`
	MemberID           string          `json:"member_id"`
	ProductCode        string          `json:"product_code"`
	Principal          decimal.Decimal `json:"principal"`
	TermMonths         int             `json:"term_months"`
	MonthlyRate        decimal.Decimal `json:"monthly_rate"`
	TotalInterest      decimal.Decimal `json:"total_interest"`
	TotalRepayable     decimal.Decimal `json:"total_repayable"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
	RemainingBalance   decimal.Decimal `json:"remaining_balance"`
	Purpose            string          `json:"purpose"`
	State              string          `json:"state"`
	// Set only while pending approval.
	StageIndex   *int   `json:"stage_index,omitempty"`
	StageName    string `json:"stage_name,omitempty"`
	AwaitingRole string `json:"awaiting_role,omitempty"`

	Round                   int        `json:"round"`
	Version                 int64      `json:"version"`
	CreatedAt               time.Time  `json:"created_at"`
	SubmittedAt             *time.Time `json:"submitted_at,omitempty"`
	StateUpdatedAt          time.Time  `json:"state_updated_at"`
	ApprovedAt              *time.Time `json:"approved_at,omitempty"`
	DisbursementRequestedAt *time.Time `json:"disbursement_requested_at,omitempty"`
	DisbursedAt             *time.Time `json:"disbursed_at,omitempty"`
	ClosedAt                *time.Time `json:"closed_at,omitempty"`
}

type DecisionDTO struct {
	DecisionID  string    `json:"decision_id"`
	DeciderID   string    `json:"decider_id"`
	DeciderRole string    `json:"decider_role"`
	StageIndex  int       `json:"stage_index"`
	StageName   string    `json:"stage_name"`
	Round       int       `json:"round"`
	Outcome     string    `json:"outcome"`
	Remarks     string    `json:"remarks,omitempty"`
	DecidedAt   time.Time `json:"decided_at"`
}

type RepaymentDTO struct {
	RepaymentID  string          `json:"repayment_id"`
	Reference    string          `json:"reference"`
	Amount       decimal.Decimal `json:"amount"`
	PaidOn       string          `json:"paid_on"`
	LedgerPosted bool            `json:"ledger_posted"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

type ScheduleDTO struct {
	ApplicationID string `json:"application_id"`
	// Projected is true until the loan is disbursed; due dates then count from today.
	Projected    bool               `json:"projected"`
	Installments []loan.Installment `json:"installments"`
}

type StatsDTO struct {
	Counts             map[string]int64 `json:"counts"`
	Total              int64            `json:"total"`
	OutstandingBalance decimal.Decimal  `json:"outstanding_balance"`
}

func (u *Usecase) toDTO(a *loan.Application) *ApplicationDTO {
	dto := &ApplicationDTO{
		ApplicationID:           a.ApplicationID,
		MemberID:                a.MemberID,
		ProductCode:             a.ProductCode,
		Principal:               a.Principal,
		TermMonths:              a.TermMonths,
		MonthlyRate:             a.MonthlyRate,
		TotalInterest:           a.TotalInterest,
		TotalRepayable:          a.TotalRepayable,
		MonthlyInstallment:      a.MonthlyInstallment,
		RemainingBalance:        a.RemainingBalance,
		Purpose:                 a.Purpose,
		State:                   string(a.State),
		Round:                   a.Round,
		Version:                 a.Version,
		CreatedAt:               a.CreatedAt,
		SubmittedAt:             a.SubmittedAt,
		StateUpdatedAt:          a.StateUpdatedAt,
		ApprovedAt:              a.ApprovedAt,
		DisbursementRequestedAt: a.DisbursementRequestedAt,
		DisbursedAt:             a.DisbursedAt,
		ClosedAt:                a.ClosedAt,
	}
	if a.State == loan.StatePendingApproval {
		idx := a.StageIndex
		dto.StageIndex = &idx
		if s, ok := u.def.StageAt(idx); ok {
			dto.StageName = s.Name
			dto.AwaitingRole = string(s.Role)
		}
	}
	return dto
}

func toDecisionDTO(d approval.Decision) DecisionDTO {
	return DecisionDTO{
		DecisionID:  d.DecisionID,
		DeciderID:   d.DeciderID,
		DeciderRole: string(d.DeciderRole),
		StageIndex:  d.StageIndex,
		StageName:   d.StageName,
		Round:       d.Round,
		Outcome:     string(d.Outcome),
		Remarks:     d.Remarks,
		DecidedAt:   d.DecidedAt,
	}
}

func toRepaymentDTO(r repayment.Repayment) RepaymentDTO {
	return RepaymentDTO{
		RepaymentID:  r.RepaymentID,
		Reference:    r.Reference,
		Amount:       r.Amount,
		PaidOn:       r.PaidOn.UTC().Format(time.DateOnly),
		LedgerPosted: r.LedgerPosted,
		RecordedAt:   r.CreatedAt,
	}
}
