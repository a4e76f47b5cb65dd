package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"sacco-workflow/internal/domain/loan"
	"sacco-workflow/internal/domain/notify"
	"sacco-workflow/internal/domain/repayment"
	"sacco-workflow/internal/domain/uow"
	"sacco-workflow/internal/domain/workflow"
	"sacco-workflow/internal/logger"
	"sacco-workflow/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// canService reports whether r may drive disbursement and repayments:
// the configured servicing role or the system admin identity the ledger
// integration runs under.
func (u *Usecase) canService(r workflow.Role) bool {
	return r == u.def.ServicingRole || r == workflow.RoleSystemAdmin
}

// RequestDisbursement retries the ledger hand-off for an approved
// application whose automatic request failed.
func (u *Usecase) RequestDisbursement(ctx context.Context, applicationID string, actor Actor) (*ApplicationDTO, error) {
	if !u.canService(actor.Role) {
		return nil, workflow.Authorization("only %s may request disbursement", u.def.ServicingRole)
	}
	a, err := u.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if a.State != loan.StateApproved {
		return nil, illegal(a, "request disbursement for")
	}
	if a.DisbursementRequestedAt != nil {
		return nil, workflow.InvalidState(workflow.ReasonDisbursementRequested,
			"disbursement for %s was already requested", a.ApplicationID)
	}
	if err := u.createDisbursement(ctx, a); err != nil {
		return nil, err
	}
	stamped, err := u.markDisbursementRequested(ctx, a.ApplicationID, a.Version)
	if err != nil {
		return nil, err
	}
	return u.toDTO(stamped), nil
}

// Disburse records that funds left the cooperative: approved becomes
// repaying in one commit with the full repayable amount outstanding.
func (u *Usecase) Disburse(ctx context.Context, in DisburseInput) (*ApplicationDTO, error) {
	if !u.canService(in.Actor.Role) {
		return nil, workflow.Authorization("only %s may record a disbursement", u.def.ServicingRole)
	}
	if err := requireVersion(in.ExpectedVersion); err != nil {
		return nil, err
	}
	a, err := u.mutate(ctx, in.ApplicationID, in.ExpectedVersion, func(_ uow.Repos, a *loan.Application) error {
		if a.State != loan.StateApproved {
			return illegal(a, "disburse")
		}
		now := u.clock()
		a.DisbursedAt = &now
		a.RemainingBalance = a.TotalRepayable
		a.Transition(loan.StateDisbursed, now)
		a.Transition(loan.StateRepaying, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.metrics.Transition(loan.StateApproved, loan.StateDisbursed)
	u.metrics.Transition(loan.StateDisbursed, loan.StateRepaying)
	u.dispatch(ctx, a, notify.EventDisbursed, "")
	return u.toDTO(a), nil
}

// RecordRepayment reduces the outstanding balance and completes the loan
// once it is within tolerance of zero. The ledger is posted after commit.
// When that post fails the committed application is returned together
// with a collaborator error; retrying with the same reference only
// re-posts, and only when amount and paid_on match the recorded row.
func (u *Usecase) RecordRepayment(ctx context.Context, in RepaymentInput) (*ApplicationDTO, error) {
	if !u.canService(in.Actor.Role) {
		return nil, workflow.Authorization("only %s may record repayments", u.def.ServicingRole)
	}
	if !in.Amount.IsPositive() || !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, workflow.Validation(workflow.ReasonInvalidAmount,
			"amount must be a positive amount with at most 2 decimals")
	}
	if in.PaidOn.IsZero() {
		return nil, workflow.Validation(workflow.ReasonMissingField, "paid_on is required")
	}
	if in.ApplicationID == "" {
		return nil, workflow.Validation(workflow.ReasonMissingField, "application_id is required")
	}
	reference := strings.TrimSpace(in.Reference)
	if reference == "" {
		reference = id.NewID32()
	}
	if u.uow == nil {
		return nil, errors.New("engine: no unit of work configured")
	}

	var (
		app      *loan.Application
		rep      *repayment.Repayment
		replay   bool
		finished bool
	)
	err := u.uow.WithinApplicationTx(ctx, in.ApplicationID, func(r uow.Repos, a *loan.Application) error {
		existing, err := r.Repayments.GetByReference(ctx, a.ID, reference)
		switch {
		case err == nil:
			if existing.LedgerPosted {
				return workflow.InvalidState(workflow.ReasonDuplicateRepayment,
					"repayment %s was already recorded", reference)
			}
			if !existing.Amount.Equal(in.Amount) || !existing.PaidOn.Equal(paidOnDate(in.PaidOn)) {
				return workflow.InvalidState(workflow.ReasonReferenceMismatch,
					"repayment %s was recorded as %s on %s", reference,
					existing.Amount.StringFixed(2), existing.PaidOn.UTC().Format(time.DateOnly))
			}
			app, rep, replay = a, existing, true
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if a.Version != in.ExpectedVersion {
			return staleVersion(a, in.ExpectedVersion)
		}
		if a.State != loan.StateRepaying {
			return illegal(a, "record a repayment on")
		}
		tolerance := u.def.Tolerance()
		if in.Amount.GreaterThan(a.RemainingBalance.Add(tolerance)) {
			return workflow.Validation(workflow.ReasonExceedsBalance,
				"amount %s exceeds the remaining balance %s", in.Amount.StringFixed(2), a.RemainingBalance.StringFixed(2))
		}

		rep = &repayment.Repayment{
			RepaymentID:   id.NewID32(),
			ApplicationID: a.ID,
			Reference:     reference,
			Amount:        in.Amount,
			PaidOn:        paidOnDate(in.PaidOn),
		}
		if err := r.Repayments.Create(ctx, rep); err != nil {
			return err
		}

		a.RemainingBalance = a.RemainingBalance.Sub(in.Amount)
		if a.RemainingBalance.LessThanOrEqual(tolerance) {
			now := u.clock()
			a.RemainingBalance = decimal.Zero
			a.ClosedAt = &now
			a.Transition(loan.StateCompleted, now)
			finished = true
		}
		if err := r.Applications.Save(ctx, a); err != nil {
			if errors.Is(err, loan.ErrVersionConflict) {
				return workflow.InvalidState(workflow.ReasonStaleVersion,
					"application %s was changed by another request", a.ApplicationID)
			}
			return err
		}
		app = a
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err, in.ApplicationID)
	}
	if !replay {
		u.invalidatePending(ctx)
		if finished {
			u.metrics.Transition(loan.StateRepaying, loan.StateCompleted)
		}
	}

	if finished {
		u.dispatch(ctx, app, notify.EventCompleted, "")
	}
	dto := u.toDTO(app)
	if err := u.postRepayment(ctx, app, rep); err != nil {
		return dto, err
	}
	return dto, nil
}

func (u *Usecase) postRepayment(ctx context.Context, a *loan.Application, rep *repayment.Repayment) error {
	if u.ledger == nil {
		return workflow.Unavailable("ledger", errors.New("not configured"))
	}
	cctx, cancel := u.collaboratorCtx(ctx)
	defer cancel()

	logger.ExternalServiceCall(ctx, "ledger", "apply_repayment", "application_id", a.ApplicationID, "reference", rep.Reference)
	err := u.ledger.ApplyRepayment(cctx, a.ApplicationID, rep.Amount, rep.PaidOn, rep.Reference)
	logger.ExternalServiceResult(ctx, "ledger", "apply_repayment", err, "application_id", a.ApplicationID, "reference", rep.Reference)
	if err != nil {
		u.metrics.CollaboratorFailure("ledger", "apply_repayment")
		return workflow.Unavailable("ledger", err)
	}
	if err := u.repos.Repayments.MarkPosted(ctx, rep.ID); err != nil {
		// a retry re-posts under the same reference
		return workflow.Unavailable("repayment store", err)
	}
	return nil
}

// MarkDefaulted closes a repaying loan the cooperative no longer expects
// to recover through normal repayments.
func (u *Usecase) MarkDefaulted(ctx context.Context, in DefaultInput) (*ApplicationDTO, error) {
	if err := requireVersion(in.ExpectedVersion); err != nil {
		return nil, err
	}
	remarks := strings.TrimSpace(in.Remarks)
	if remarks == "" {
		return nil, workflow.Validation(workflow.ReasonRemarksRequired, "remarks are required to mark a default")
	}
	a, err := u.mutate(ctx, in.ApplicationID, in.ExpectedVersion, func(_ uow.Repos, a *loan.Application) error {
		if !u.canService(in.Actor.Role) {
			return workflow.Authorization("only %s may mark a loan defaulted", u.def.ServicingRole)
		}
		if a.State != loan.StateRepaying {
			return illegal(a, "default")
		}
		now := u.clock()
		a.ClosedAt = &now
		a.Transition(loan.StateDefaulted, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "loan defaulted",
		"application_id", a.ApplicationID, "actor_id", in.Actor.ID, "remarks", remarks,
		"remaining_balance", a.RemainingBalance.StringFixed(2))
	u.metrics.Transition(loan.StateRepaying, loan.StateDefaulted)
	u.dispatch(ctx, a, notify.EventDefaulted, remarks)
	return u.toDTO(a), nil
}

// paidOnDate truncates to the calendar day in UTC.
func paidOnDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
