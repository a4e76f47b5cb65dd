package repayment

import "context"

type Repository interface {
	Create(ctx context.Context, r *Repayment) error
	GetByReference(ctx context.Context, applicationID uint64, reference string) (*Repayment, error)
	ListByApplicationID(ctx context.Context, applicationID uint64) ([]Repayment, error)
	// MarkPosted is the only mutation allowed after insert.
	MarkPosted(ctx context.Context, id uint64) error
}
