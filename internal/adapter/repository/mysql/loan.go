package mysql

import (
	"context"
	"errors"
	"fmt"

	loanDomain "sacco-workflow/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository struct{ db *gorm.DB }

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a new application. A second open application for the
// same member trips ux_loan_applications_open_member.
func (r *ApplicationRepository) Create(ctx context.Context, a *loanDomain.Application) error {
	if a.Version == 0 {
		a.Version = 1
	}
	err := r.db.WithContext(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) && a.OpenMemberID != nil {
		return loanDomain.ErrOpenApplicationExists
	}
	return err
}

// Save writes every column guarded by the version the caller read.
func (r *ApplicationRepository) Save(ctx context.Context, a *loanDomain.Application) error {
	prev := a.Version
	a.Version = prev + 1
	res := r.db.WithContext(ctx).
		Model(a).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(a)
	if res.Error != nil {
		a.Version = prev
		return fmt.Errorf("save application %s: %w", a.ApplicationID, res.Error)
	}
	if res.RowsAffected == 0 {
		a.Version = prev
		return loanDomain.ErrVersionConflict
	}
	return nil
}

func (r *ApplicationRepository) GetByApplicationID(ctx context.Context, applicationID string) (*loanDomain.Application, error) {
	var out loanDomain.Application
	res := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&out)
	return &out, res.Error
}

func (r *ApplicationRepository) GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*loanDomain.Application, error) {
	var out loanDomain.Application
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("application_id = ?", applicationID).
		First(&out)
	return &out, res.Error
}

func (r *ApplicationRepository) CountInFlightByMember(ctx context.Context, memberID string, excludeID uint64) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Application{}).
		Where("member_id = ? AND state NOT IN ? AND id <> ?", memberID, loanDomain.TerminalStates, excludeID).
		Count(&n)
	return n, res.Error
}

func (r *ApplicationRepository) ListPendingAtStages(ctx context.Context, stageIndices []int) ([]loanDomain.Application, error) {
	out := []loanDomain.Application{}
	if len(stageIndices) == 0 {
		return out, nil
	}
	res := r.db.WithContext(ctx).
		Where("state = ? AND stage_index IN ?", loanDomain.StatePendingApproval, stageIndices).
		Order("submitted_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *ApplicationRepository) ListByMember(ctx context.Context, memberID string) ([]loanDomain.Application, error) {
	out := []loanDomain.Application{}
	res := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC, id DESC").
		Find(&out)
	return out, res.Error
}

func (r *ApplicationRepository) ListByState(ctx context.Context, state loanDomain.State) ([]loanDomain.Application, error) {
	out := []loanDomain.Application{}
	res := r.db.WithContext(ctx).Where("state = ?", state).Order("id ASC").Find(&out)
	return out, res.Error
}

func (r *ApplicationRepository) CountByState(ctx context.Context) (map[loanDomain.State]int64, error) {
	var rows []struct {
		State loanDomain.State
		N     int64
	}
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Application{}).
		Select("state, COUNT(*) AS n").
		Group("state").
		Scan(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	out := make(map[loanDomain.State]int64, len(rows))
	for _, row := range rows {
		out[row.State] = row.N
	}
	return out, nil
}
