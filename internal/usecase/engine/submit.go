package engine

import (
	"context"

	"sacco-workflow/internal/domain/loan"
	"sacco-workflow/internal/domain/uow"
	"sacco-workflow/internal/domain/workflow"
	"sacco-workflow/internal/usecase/eligibility"
)

// Submit runs eligibility, locks terms and queues the application at the
// first stage. A returned application restarts the full review.
func (u *Usecase) Submit(ctx context.Context, in SubmitInput) (*ApplicationDTO, error) {
	if err := requireVersion(in.ExpectedVersion); err != nil {
		return nil, err
	}
	if in.ActorID == "" {
		return nil, workflow.Validation(workflow.ReasonMissingField, "actor is required")
	}

	// Cheap pre-checks before calling the ledger; all of them repeat under lock.
	cur, err := u.load(ctx, in.ApplicationID)
	if err != nil {
		return nil, err
	}
	if cur.Version != in.ExpectedVersion {
		return nil, staleVersion(cur, in.ExpectedVersion)
	}
	if cur.MemberID != in.ActorID {
		return nil, workflow.Authorization("only the owning member may submit application %s", cur.ApplicationID)
	}
	if !cur.State.Editable() {
		return nil, illegal(cur, "submit")
	}

	standing, err := u.memberStanding(ctx, cur.MemberID)
	if err != nil {
		return nil, err
	}

	var from loan.State
	a, err := u.mutate(ctx, in.ApplicationID, in.ExpectedVersion, func(r uow.Repos, a *loan.Application) error {
		if a.MemberID != in.ActorID {
			return workflow.Authorization("only the owning member may submit application %s", a.ApplicationID)
		}
		if !a.State.Editable() {
			return illegal(a, "submit")
		}
		if a.Purpose == "" {
			return workflow.Validation(workflow.ReasonMissingField, "purpose is required")
		}
		terms, err := u.quote(a.ProductCode, a.Principal, a.TermMonths)
		if err != nil {
			return err
		}

		inFlight, err := r.Applications.CountInFlightByMember(ctx, a.MemberID, a.ID)
		if err != nil {
			return err
		}
		if err := eligibility.Check(eligibility.Input{
			Standing:     *standing,
			Principal:    a.Principal,
			Multiple:     u.def.SavingsMultiple(),
			MaxPrincipal: u.def.MaxPrincipal(),
			InFlight:     inFlight,
		}); err != nil {
			return err
		}

		now := u.clock()
		from = a.State
		a.LockTerms(terms)
		a.StageIndex = 0
		a.Round++
		a.SubmittedAt = &now
		a.Transition(loan.StatePendingApproval, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.metrics.Transition(from, loan.StatePendingApproval)
	return u.toDTO(a), nil
}
