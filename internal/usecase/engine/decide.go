package engine

import (
	"context"
	"strings"

	"sacco-workflow/internal/domain/approval"
	"sacco-workflow/internal/domain/loan"
	"sacco-workflow/internal/domain/notify"
	"sacco-workflow/internal/domain/uow"
	"sacco-workflow/internal/domain/workflow"
	"sacco-workflow/internal/logger"
	"sacco-workflow/pkg/id"
)

// Decide records one stage decision and moves the application on.
// Approve at the last active stage finalizes to approved; reject and
// return end the current round.
func (u *Usecase) Decide(ctx context.Context, in DecideInput) (*ApplicationDTO, error) {
	if err := requireVersion(in.ExpectedVersion); err != nil {
		return nil, err
	}
	if !in.Outcome.Valid() {
		return nil, workflow.Validation(workflow.ReasonUnknownOutcome, "unknown outcome %q", in.Outcome)
	}
	remarks := strings.TrimSpace(in.Remarks)
	if in.Outcome.RequiresRemarks() && remarks == "" {
		return nil, workflow.Validation(workflow.ReasonRemarksRequired, "remarks are required to %s", in.Outcome)
	}
	if in.Decider.ID == "" {
		return nil, workflow.Validation(workflow.ReasonMissingField, "decider is required")
	}

	var decision *approval.Decision
	a, err := u.mutate(ctx, in.ApplicationID, in.ExpectedVersion, func(r uow.Repos, a *loan.Application) error {
		if a.State != loan.StatePendingApproval {
			return illegal(a, "decide on")
		}
		stage, ok := u.def.StageAt(a.StageIndex)
		if !ok {
			return workflow.InvalidState(workflow.ReasonIllegalTransition,
				"stage %d of application %s is no longer configured", a.StageIndex, a.ApplicationID)
		}
		if stage.Role != in.Decider.Role {
			return workflow.Authorization("stage %s is decided by %s, not %s", stage.Name, stage.Role, in.Decider.Role)
		}

		now := u.clock()
		decision = &approval.Decision{
			DecisionID:    id.NewID32(),
			ApplicationID: a.ID,
			DeciderID:     in.Decider.ID,
			DeciderRole:   in.Decider.Role,
			StageIndex:    a.StageIndex,
			StageName:     stage.Name,
			Round:         a.Round,
			Outcome:       in.Outcome,
			Remarks:       remarks,
			DecidedAt:     now,
		}
		if err := r.Decisions.Create(ctx, decision); err != nil {
			return err
		}

		switch in.Outcome {
		case approval.OutcomeApprove:
			if a.StageIndex >= u.def.LastIndex() {
				a.ApprovedAt = &now
				a.Transition(loan.StateApproved, now)
			} else {
				a.StageIndex++
				a.StateUpdatedAt = now
			}
		case approval.OutcomeReject:
			a.ClosedAt = &now
			a.Transition(loan.StateRejected, now)
		case approval.OutcomeReturn:
			a.Transition(loan.StateReturned, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "decision recorded",
		"application_id", a.ApplicationID, "stage", decision.StageName,
		"outcome", string(decision.Outcome), "state", string(a.State))

	switch a.State {
	case loan.StateApproved:
		u.metrics.Transition(loan.StatePendingApproval, loan.StateApproved)
		a = u.handOffDisbursement(ctx, a)
		u.dispatch(ctx, a, notify.EventApproved, remarks)
	case loan.StateRejected:
		u.metrics.Transition(loan.StatePendingApproval, loan.StateRejected)
		u.dispatch(ctx, a, notify.EventRejected, remarks)
	case loan.StateReturned:
		u.metrics.Transition(loan.StatePendingApproval, loan.StateReturned)
		u.dispatch(ctx, a, notify.EventReturned, remarks)
	}
	return u.toDTO(a), nil
}

// handOffDisbursement asks the ledger to set up the disbursement and stamps
// disbursement_requested_at. Failure leaves the stamp empty for a retry
// through RequestDisbursement.
func (u *Usecase) handOffDisbursement(ctx context.Context, a *loan.Application) *loan.Application {
	if err := u.createDisbursement(ctx, a); err != nil {
		logger.WarnContext(ctx, "disbursement hand-off failed; awaiting retry",
			"application_id", a.ApplicationID, "error", err)
		return a
	}
	stamped, err := u.markDisbursementRequested(ctx, a.ApplicationID, a.Version)
	if err != nil {
		logger.WarnContext(ctx, "disbursement requested but not stamped",
			"application_id", a.ApplicationID, "error", err)
		return a
	}
	return stamped
}

func (u *Usecase) markDisbursementRequested(ctx context.Context, applicationID string, version int64) (*loan.Application, error) {
	return u.mutate(ctx, applicationID, version, func(_ uow.Repos, a *loan.Application) error {
		if a.State != loan.StateApproved {
			return illegal(a, "request disbursement for")
		}
		now := u.clock()
		a.DisbursementRequestedAt = &now
		return nil
	})
}
