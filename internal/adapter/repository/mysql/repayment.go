package mysql

import (
	"context"

	repaymentDomain "sacco-workflow/internal/domain/repayment"

	"gorm.io/gorm"
)

type RepaymentRepository struct{ db *gorm.DB }

func NewRepaymentRepository(db *gorm.DB) *RepaymentRepository { return &RepaymentRepository{db: db} }

func (r *RepaymentRepository) Create(ctx context.Context, p *repaymentDomain.Repayment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *RepaymentRepository) GetByReference(ctx context.Context, applicationNumericID uint64, reference string) (*repaymentDomain.Repayment, error) {
	var out repaymentDomain.Repayment
	res := r.db.WithContext(ctx).
		Where("application_id = ? AND reference = ?", applicationNumericID, reference).
		First(&out)
	return &out, res.Error
}

func (r *RepaymentRepository) ListByApplicationID(ctx context.Context, applicationNumericID uint64) ([]repaymentDomain.Repayment, error) {
	out := []repaymentDomain.Repayment{}
	res := r.db.WithContext(ctx).
		Where("application_id = ?", applicationNumericID).
		Order("paid_on ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *RepaymentRepository) MarkPosted(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&repaymentDomain.Repayment{}).
		Where("id = ?", id).
		Update("ledger_posted", true).Error
}
