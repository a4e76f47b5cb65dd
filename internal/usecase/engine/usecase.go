// Package engine implements the loan approval workflow: drafting, staged
// decisions, disbursement and repayment of member loan applications.
package engine

import (
	"context"
	"errors"
	"time"

	"sacco-workflow/internal/domain/ledger"
	"sacco-workflow/internal/domain/loan"
	"sacco-workflow/internal/domain/notify"
	"sacco-workflow/internal/domain/uow"
	"sacco-workflow/internal/domain/workflow"
	"sacco-workflow/internal/logger"

	"gorm.io/gorm"
)

const defaultCollaboratorTimeout = 3 * time.Second

// PendingSource serves the per-stage approval queues. The application
// repository satisfies it directly; a cache may wrap it.
type PendingSource interface {
	ListPendingAtStages(ctx context.Context, stageIndices []int) ([]loan.Application, error)
}

// invalidator is implemented by cached pending sources.
type invalidator interface {
	Invalidate(ctx context.Context) error
}

// Recorder receives workflow metrics.
type Recorder interface {
	Transition(from, to loan.State)
	CollaboratorFailure(collaborator, operation string)
}

type nopRecorder struct{}

func (nopRecorder) Transition(loan.State, loan.State)  {}
func (nopRecorder) CollaboratorFailure(string, string) {}

type Usecase struct {
	repos    uow.Repos
	uow      uow.UnitOfWork
	def      *workflow.Definition
	ledger   ledger.Service
	notifier notify.Service

	pending PendingSource
	metrics Recorder
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Usecase)

func WithPendingSource(p PendingSource) Option { return func(u *Usecase) { u.pending = p } }

func WithRecorder(r Recorder) Option { return func(u *Usecase) { u.metrics = r } }

// WithCollaboratorTimeout bounds every ledger and notification call.
func WithCollaboratorTimeout(d time.Duration) Option {
	return func(u *Usecase) {
		if d > 0 {
			u.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option { return func(u *Usecase) { u.now = now } }

// NewUsecase: repos serve reads outside transactions, tx runs every mutation.
func NewUsecase(repos uow.Repos, tx uow.UnitOfWork, def *workflow.Definition, led ledger.Service, n notify.Service, opts ...Option) *Usecase {
	u := &Usecase{
		repos:    repos,
		uow:      tx,
		def:      def,
		ledger:   led,
		notifier: n,
		pending:  repos.Applications,
		metrics:  nopRecorder{},
		timeout:  defaultCollaboratorTimeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Usecase) clock() time.Time { return u.now().UTC() }

// mutate locks the application, checks the caller's version, applies fn
// and saves. The version check comes before anything fn inspects.
func (u *Usecase) mutate(ctx context.Context, applicationID string, expected int64, fn func(r uow.Repos, a *loan.Application) error) (*loan.Application, error) {
	if u.uow == nil {
		return nil, errors.New("engine: no unit of work configured")
	}
	var out *loan.Application
	err := u.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, a *loan.Application) error {
		if a.Version != expected {
			return staleVersion(a, expected)
		}
		if err := fn(r, a); err != nil {
			return err
		}
		if err := r.Applications.Save(ctx, a); err != nil {
			if errors.Is(err, loan.ErrVersionConflict) {
				return workflow.InvalidState(workflow.ReasonStaleVersion,
					"application %s was changed by another request", a.ApplicationID)
			}
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err, applicationID)
	}
	u.invalidatePending(ctx)
	return out, nil
}

func (u *Usecase) load(ctx context.Context, applicationID string) (*loan.Application, error) {
	if applicationID == "" {
		return nil, workflow.Validation(workflow.ReasonMissingField, "application_id is required")
	}
	a, err := u.repos.Applications.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, notFoundOr(err, applicationID)
	}
	return a, nil
}

func staleVersion(a *loan.Application, expected int64) error {
	return workflow.InvalidState(workflow.ReasonStaleVersion,
		"application %s is at version %d, not %d", a.ApplicationID, a.Version, expected)
}

func illegal(a *loan.Application, op string) error {
	return workflow.InvalidState(workflow.ReasonIllegalTransition,
		"cannot %s application %s in state %s", op, a.ApplicationID, a.State)
}

func requireVersion(v int64) error {
	if v <= 0 {
		return workflow.Validation(workflow.ReasonMissingField, "expected version is required")
	}
	return nil
}

func notFoundOr(err error, applicationID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, loan.ErrNotFound) {
		return workflow.NotFound("application %s not found", applicationID)
	}
	return err
}

func (u *Usecase) invalidatePending(ctx context.Context) {
	inv, ok := u.pending.(invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx); err != nil {
		logger.WarnContext(ctx, "pending queue cache invalidation failed", "error", err)
	}
}

// collaboratorCtx survives caller cancellation so a committed transition
// still gets its side effect attempted, bounded by the timeout.
func (u *Usecase) collaboratorCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), u.timeout)
}

func (u *Usecase) memberStanding(ctx context.Context, memberID string) (*ledger.Standing, error) {
	if u.ledger == nil {
		return nil, workflow.Unavailable("ledger", errors.New("not configured"))
	}
	cctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	logger.ExternalServiceCall(ctx, "ledger", "get_member_standing", "member_id", memberID)
	s, err := u.ledger.GetMemberStanding(cctx, memberID)
	logger.ExternalServiceResult(ctx, "ledger", "get_member_standing", err, "member_id", memberID)
	if err != nil {
		if errors.Is(err, ledger.ErrMemberNotFound) {
			return nil, workflow.Validation(workflow.ReasonMemberNotFound, "member %s is unknown to the ledger", memberID)
		}
		u.metrics.CollaboratorFailure("ledger", "get_member_standing")
		return nil, workflow.Unavailable("ledger", err)
	}
	return s, nil
}

func (u *Usecase) createDisbursement(ctx context.Context, a *loan.Application) error {
	if u.ledger == nil {
		return workflow.Unavailable("ledger", errors.New("not configured"))
	}
	cctx, cancel := u.collaboratorCtx(ctx)
	defer cancel()

	logger.ExternalServiceCall(ctx, "ledger", "create_disbursement", "application_id", a.ApplicationID)
	err := u.ledger.CreateDisbursement(cctx, a.ApplicationID, a.Principal)
	logger.ExternalServiceResult(ctx, "ledger", "create_disbursement", err, "application_id", a.ApplicationID)
	if err != nil {
		u.metrics.CollaboratorFailure("ledger", "create_disbursement")
		return workflow.Unavailable("ledger", err)
	}
	return nil
}

// dispatch is best effort: failures are logged and counted, never returned.
func (u *Usecase) dispatch(ctx context.Context, a *loan.Application, event notify.EventType, remarks string) {
	if u.notifier == nil {
		return
	}
	cctx, cancel := u.collaboratorCtx(ctx)
	defer cancel()

	payload := map[string]any{
		"application_id": a.ApplicationID,
		"state":          string(a.State),
		"version":        a.Version,
	}
	if remarks != "" {
		payload["remarks"] = remarks
	}
	if a.State == loan.StateApproved || a.State == loan.StateRepaying {
		payload["total_repayable"] = a.TotalRepayable.StringFixed(2)
		payload["monthly_installment"] = a.MonthlyInstallment.StringFixed(2)
	}
	if err := u.notifier.Notify(cctx, a.MemberID, event, payload); err != nil {
		u.metrics.CollaboratorFailure("notification", string(event))
		logger.WarnContext(ctx, "notification dropped",
			"application_id", a.ApplicationID, "event", string(event), "error", err)
	}
}
