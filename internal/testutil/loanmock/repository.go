package loanmock

import (
	"context"

	domain "sacco-workflow/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset lookups return context.Canceled; unset writes succeed.
type Repo struct {
	CreateFn                      func(ctx context.Context, a *domain.Application) error
	GetByApplicationIDFn          func(ctx context.Context, applicationID string) (*domain.Application, error)
	GetByApplicationIDForUpdateFn func(ctx context.Context, applicationID string) (*domain.Application, error)
	SaveFn                        func(ctx context.Context, a *domain.Application) error
	CountInFlightByMemberFn       func(ctx context.Context, memberID string, excludeID uint64) (int64, error)
	ListPendingAtStagesFn         func(ctx context.Context, stageIndices []int) ([]domain.Application, error)
	ListByMemberFn                func(ctx context.Context, memberID string) ([]domain.Application, error)
	ListByStateFn                 func(ctx context.Context, state domain.State) ([]domain.Application, error)
	CountByStateFn                func(ctx context.Context) (map[domain.State]int64, error)
}

func (m *Repo) Create(ctx context.Context, a *domain.Application) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetByApplicationID(ctx context.Context, applicationID string) (*domain.Application, error) {
	if m.GetByApplicationIDFn != nil {
		return m.GetByApplicationIDFn(ctx, applicationID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*domain.Application, error) {
	if m.GetByApplicationIDForUpdateFn != nil {
		return m.GetByApplicationIDForUpdateFn(ctx, applicationID)
	}
	return nil, context.Canceled
}

// Save defaults to a successful optimistic write: the version is bumped.
func (m *Repo) Save(ctx context.Context, a *domain.Application) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, a)
	}
	a.Version++
	return nil
}

func (m *Repo) CountInFlightByMember(ctx context.Context, memberID string, excludeID uint64) (int64, error) {
	if m.CountInFlightByMemberFn != nil {
		return m.CountInFlightByMemberFn(ctx, memberID, excludeID)
	}
	return 0, nil
}

func (m *Repo) ListPendingAtStages(ctx context.Context, stageIndices []int) ([]domain.Application, error) {
	if m.ListPendingAtStagesFn != nil {
		return m.ListPendingAtStagesFn(ctx, stageIndices)
	}
	return nil, nil
}

func (m *Repo) ListByMember(ctx context.Context, memberID string) ([]domain.Application, error) {
	if m.ListByMemberFn != nil {
		return m.ListByMemberFn(ctx, memberID)
	}
	return nil, nil
}

func (m *Repo) ListByState(ctx context.Context, state domain.State) ([]domain.Application, error) {
	if m.ListByStateFn != nil {
		return m.ListByStateFn(ctx, state)
	}
	return nil, nil
}

func (m *Repo) CountByState(ctx context.Context) (map[domain.State]int64, error) {
	if m.CountByStateFn != nil {
		return m.CountByStateFn(ctx)
	}
	return map[domain.State]int64{}, nil
}
