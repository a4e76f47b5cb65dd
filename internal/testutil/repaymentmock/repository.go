package repaymentmock

import (
	"context"

	domain "sacco-workflow/internal/domain/repayment"

	"gorm.io/gorm"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock of repayment.Repository. Unset lookups
// report gorm.ErrRecordNotFound, matching the gorm repository.
type Repo struct {
	CreateFn              func(ctx context.Context, r *domain.Repayment) error
	GetByReferenceFn      func(ctx context.Context, applicationID uint64, reference string) (*domain.Repayment, error)
	ListByApplicationIDFn func(ctx context.Context, applicationID uint64) ([]domain.Repayment, error)
	MarkPostedFn          func(ctx context.Context, id uint64) error
}

func (m *Repo) Create(ctx context.Context, r *domain.Repayment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	return nil
}

func (m *Repo) GetByReference(ctx context.Context, applicationID uint64, reference string) (*domain.Repayment, error) {
	if m.GetByReferenceFn != nil {
		return m.GetByReferenceFn(ctx, applicationID, reference)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) ListByApplicationID(ctx context.Context, applicationID uint64) ([]domain.Repayment, error) {
	if m.ListByApplicationIDFn != nil {
		return m.ListByApplicationIDFn(ctx, applicationID)
	}
	return nil, nil
}

func (m *Repo) MarkPosted(ctx context.Context, id uint64) error {
	if m.MarkPostedFn != nil {
		return m.MarkPostedFn(ctx, id)
	}
	return nil
}
