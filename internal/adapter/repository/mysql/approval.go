package mysql

import (
	"context"

	approvalDomain "sacco-workflow/internal/domain/approval"

	"gorm.io/gorm"
)

type DecisionRepository struct{ db *gorm.DB }

func NewDecisionRepository(db *gorm.DB) *DecisionRepository { return &DecisionRepository{db: db} }

func (r *DecisionRepository) Create(ctx context.Context, d *approvalDomain.Decision) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DecisionRepository) ListByApplicationID(ctx context.Context, applicationNumericID uint64) ([]approvalDomain.Decision, error) {
	out := []approvalDomain.Decision{}
	res := r.db.WithContext(ctx).
		Where("application_id = ?", applicationNumericID).
		Order("decided_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *DecisionRepository) GetByDecisionID(ctx context.Context, decisionID string) (*approvalDomain.Decision, error) {
	var out approvalDomain.Decision
	res := r.db.WithContext(ctx).
		Where("decision_id = ?", decisionID).
		First(&out)
	return &out, res.Error
}
