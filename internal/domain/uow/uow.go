package uow

import (
	"context"

	"sacco-workflow/internal/domain/approval"
	"sacco-workflow/internal/domain/loan"
	"sacco-workflow/internal/domain/repayment"
)

// Repos bound to one transaction.
type Repos struct {
	Applications loan.Repository
	Decisions    approval.Repository
	Repayments   repayment.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the application row first, then pass it in
	WithinApplicationTx(ctx context.Context, applicationID string, fn func(r Repos, a *loan.Application) error) error
}
