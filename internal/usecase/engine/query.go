package engine

import (
	"context"

	"sacco-workflow/internal/domain/loan"
	"sacco-workflow/internal/domain/workflow"

	"github.com/shopspring/decimal"
)

func (u *Usecase) GetApplication(ctx context.Context, applicationID string) (*ApplicationDTO, error) {
	a, err := u.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return u.toDTO(a), nil
}

// ListDecisions returns the audit trail, oldest first.
func (u *Usecase) ListDecisions(ctx context.Context, applicationID string) ([]DecisionDTO, error) {
	a, err := u.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	ds, err := u.repos.Decisions.ListByApplicationID(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	out := make([]DecisionDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDecisionDTO(d))
	}
	return out, nil
}

// ListRepayments returns recorded repayments by paid_on, oldest first.
// Rows not yet posted to the ledger are included.
func (u *Usecase) ListRepayments(ctx context.Context, applicationID string) ([]RepaymentDTO, error) {
	a, err := u.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	rs, err := u.repos.Repayments.ListByApplicationID(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	out := make([]RepaymentDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRepaymentDTO(r))
	}
	return out, nil
}

// Schedule lays out installments from the disbursement date, or from
// today as a projection before disbursement.
func (u *Usecase) Schedule(ctx context.Context, applicationID string) (*ScheduleDTO, error) {
	a, err := u.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	start, projected := u.clock(), true
	if a.DisbursedAt != nil {
		start, projected = *a.DisbursedAt, false
	}
	return &ScheduleDTO{
		ApplicationID: a.ApplicationID,
		Projected:     projected,
		Installments:  loan.Schedule(a.Terms(), paidOnDate(start)),
	}, nil
}

func (u *Usecase) ListByMember(ctx context.Context, memberID string) ([]ApplicationDTO, error) {
	if memberID == "" {
		return nil, workflow.Validation(workflow.ReasonMissingField, "member_id is required")
	}
	apps, err := u.repos.Applications.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return u.toDTOs(apps), nil
}

// ListPendingForRole returns applications waiting on any active stage owned
// by role, oldest submission first. Results may be stale when cached.
func (u *Usecase) ListPendingForRole(ctx context.Context, role workflow.Role) ([]ApplicationDTO, error) {
	if !role.Valid() {
		return nil, workflow.Validation(workflow.ReasonUnknownRole, "unknown role %q", role)
	}
	indices := u.def.IndicesForRole(role)
	if len(indices) == 0 || u.pending == nil {
		return []ApplicationDTO{}, nil
	}
	apps, err := u.pending.ListPendingAtStages(ctx, indices)
	if err != nil {
		return nil, err
	}
	return u.toDTOs(apps), nil
}

func (u *Usecase) Stats(ctx context.Context) (*StatsDTO, error) {
	counts, err := u.repos.Applications.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	out := &StatsDTO{Counts: make(map[string]int64, len(counts)), OutstandingBalance: decimal.Zero}
	for st, n := range counts {
		out.Counts[string(st)] = n
		out.Total += n
	}
	repaying, err := u.repos.Applications.ListByState(ctx, loan.StateRepaying)
	if err != nil {
		return nil, err
	}
	for _, a := range repaying {
		out.OutstandingBalance = out.OutstandingBalance.Add(a.RemainingBalance)
	}
	return out, nil
}

func (u *Usecase) toDTOs(apps []loan.Application) []ApplicationDTO {
	out := make([]ApplicationDTO, 0, len(apps))
	for i := range apps {
		out = append(out, *u.toDTO(&apps[i]))
	}
	return out
}
