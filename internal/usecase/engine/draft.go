package engine

import (
	"context"
	"errors"
	"strings"

	"sacco-workflow/internal/domain/loan"
	"sacco-workflow/internal/domain/uow"
	"sacco-workflow/internal/domain/workflow"
	"sacco-workflow/pkg/id"

	"github.com/shopspring/decimal"
)

// quote validates the requested shape against the product and computes terms.
func (u *Usecase) quote(productCode string, principal decimal.Decimal, termMonths int) (loan.Terms, error) {
	p, ok := u.def.Product(productCode)
	if !ok {
		return loan.Terms{}, workflow.Validation(workflow.ReasonUnknownProduct, "unknown product %q", productCode)
	}
	if !principal.IsPositive() || !principal.Equal(principal.Round(2)) {
		return loan.Terms{}, workflow.Validation(workflow.ReasonInvalidAmount,
			"principal must be a positive amount with at most 2 decimals")
	}
	if termMonths <= 0 {
		return loan.Terms{}, workflow.Validation(workflow.ReasonInvalidTerm, "term_months must be positive")
	}
	if p.MaxTermMonths > 0 && termMonths > p.MaxTermMonths {
		return loan.Terms{}, workflow.Validation(workflow.ReasonTermExceedsProduct,
			"%s allows at most %d months", p.Code, p.MaxTermMonths)
	}
	return loan.Amortize(principal, p.MonthlyRate(), termMonths), nil
}

func inFlight(memberID string) error {
	return workflow.Validation(workflow.ReasonInFlightApplication,
		"member %s already has an open application", memberID)
}

// CreateDraft opens a draft. A member holds at most one non-terminal
// application at a time.
func (u *Usecase) CreateDraft(ctx context.Context, in CreateDraftInput) (*ApplicationDTO, error) {
	if in.MemberID == "" {
		return nil, workflow.Validation(workflow.ReasonMissingField, "member_id is required")
	}
	purpose := strings.TrimSpace(in.Purpose)
	if purpose == "" {
		return nil, workflow.Validation(workflow.ReasonMissingField, "purpose is required")
	}
	terms, err := u.quote(in.ProductCode, in.Principal, in.TermMonths)
	if err != nil {
		return nil, err
	}

	if u.uow == nil {
		return nil, errors.New("engine: no unit of work configured")
	}

	var a *loan.Application
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		n, err := r.Applications.CountInFlightByMember(ctx, in.MemberID, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			return inFlight(in.MemberID)
		}

		now := u.clock()
		a = &loan.Application{
			ApplicationID:  id.NewID32(),
			MemberID:       in.MemberID,
			ProductCode:    in.ProductCode,
			Purpose:        purpose,
			State:          loan.StateDraft,
			StateUpdatedAt: now,
			Version:        1,
		}
		a.LockTerms(terms)
		// unique per member while open
		a.HoldMemberSlot()

		if err := r.Applications.Create(ctx, a); err != nil {
			if errors.Is(err, loan.ErrOpenApplicationExists) {
				return inFlight(in.MemberID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.metrics.Transition("", loan.StateDraft)
	return u.toDTO(a), nil
}

// UpdateDraft lets the owning member change terms while draft or returned.
func (u *Usecase) UpdateDraft(ctx context.Context, in UpdateDraftInput) (*ApplicationDTO, error) {
	if err := requireVersion(in.ExpectedVersion); err != nil {
		return nil, err
	}
	if in.ApplicationID == "" || in.ActorID == "" {
		return nil, workflow.Validation(workflow.ReasonMissingField, "application_id and actor are required")
	}

	a, err := u.mutate(ctx, in.ApplicationID, in.ExpectedVersion, func(_ uow.Repos, a *loan.Application) error {
		if a.MemberID != in.ActorID {
			return workflow.Authorization("only the owning member may edit application %s", a.ApplicationID)
		}
		if !a.State.Editable() {
			return illegal(a, "edit")
		}

		product, principal, term := a.ProductCode, a.Principal, a.TermMonths
		if in.ProductCode != nil {
			product = *in.ProductCode
		}
		if in.Principal != nil {
			principal = *in.Principal
		}
		if in.TermMonths != nil {
			term = *in.TermMonths
		}
		if in.Purpose != nil {
			p := strings.TrimSpace(*in.Purpose)
			if p == "" {
				return workflow.Validation(workflow.ReasonMissingField, "purpose is required")
			}
			a.Purpose = p
		}
		terms, err := u.quote(product, principal, term)
		if err != nil {
			return err
		}
		a.ProductCode = product
		a.LockTerms(terms)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u.toDTO(a), nil
}
