package approvalmock

import (
	"context"
	"errors"

	domain "sacco-workflow/internal/domain/approval"
)

var _ domain.Repository = (*Repo)(nil)

var ErrNotImplemented = errors.New("approvalmock: not implemented")

// Repo is a function-backed mock of approval.Repository. With no
// CreateFn set it records created decisions in Created.
type Repo struct {
	CreateFn              func(ctx context.Context, d *domain.Decision) error
	ListByApplicationIDFn func(ctx context.Context, applicationID uint64) ([]domain.Decision, error)
	GetByDecisionIDFn     func(ctx context.Context, decisionID string) (*domain.Decision, error)

	Created []domain.Decision
}

func (m *Repo) Create(ctx context.Context, d *domain.Decision) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, d)
	}
	m.Created = append(m.Created, *d)
	return nil
}

func (m *Repo) ListByApplicationID(ctx context.Context, applicationID uint64) ([]domain.Decision, error) {
	if m.ListByApplicationIDFn != nil {
		return m.ListByApplicationIDFn(ctx, applicationID)
	}
	return nil, ErrNotImplemented
}

func (m *Repo) GetByDecisionID(ctx context.Context, decisionID string) (*domain.Decision, error) {
	if m.GetByDecisionIDFn != nil {
		return m.GetByDecisionIDFn(ctx, decisionID)
	}
	return nil, ErrNotImplemented
}
