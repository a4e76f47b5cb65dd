package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	approvalDomain "sacco-workflow/internal/domain/approval"
	"sacco-workflow/internal/domain/workflow"

	"gorm.io/gorm"
)

func makeDecision(decisionID string, appNumericID uint64, stage int, outcome approvalDomain.Outcome, when time.Time) *approvalDomain.Decision {
	return &approvalDomain.Decision{
		DecisionID:    decisionID,
		ApplicationID: appNumericID,
		DeciderID:     "ffffffffffffffffffffffffffffffff",
		DeciderRole:   workflow.RoleChairperson,
		StageIndex:    stage,
		StageName:     "chairperson_review",
		Round:         1,
		Outcome:       outcome,
		DecidedAt:     when.UTC(),
	}
}

func TestDecision_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewDecisionRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	d := makeDecision("DEC-1", 101, 0, approvalDomain.OutcomeApprove, now)
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.ID == 0 {
		t.Fatalf("expected auto ID to be set")
	}

	got, err := repo.GetByDecisionID(ctx, "DEC-1")
	if err != nil {
		t.Fatalf("GetByDecisionID: %v", err)
	}
	if got.ApplicationID != 101 || got.Outcome != approvalDomain.OutcomeApprove || got.DeciderRole != workflow.RoleChairperson {
		t.Fatalf("unexpected decision: %+v", got)
	}
}

func TestDecision_ListByApplicationID_Ordered(t *testing.T) {
	db := openTestDB(t)
	repo := NewDecisionRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	// inserted out of order on purpose
	_ = repo.Create(ctx, makeDecision("DEC-B", 7, 1, approvalDomain.OutcomeReturn, base.Add(time.Hour)))
	_ = repo.Create(ctx, makeDecision("DEC-A", 7, 0, approvalDomain.OutcomeApprove, base))
	_ = repo.Create(ctx, makeDecision("DEC-X", 8, 0, approvalDomain.OutcomeApprove, base))

	got, err := repo.ListByApplicationID(ctx, 7)
	if err != nil {
		t.Fatalf("ListByApplicationID: %v", err)
	}
	if len(got) != 2 || got[0].DecisionID != "DEC-A" || got[1].DecisionID != "DEC-B" {
		t.Fatalf("unexpected trail: %+v", got)
	}
}

func TestDecision_GetByDecisionID_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewDecisionRepository(db)

	_, err := repo.GetByDecisionID(context.Background(), "NOPE")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestDecision_UniqueDecisionID(t *testing.T) {
	db := openTestDB(t)
	repo := NewDecisionRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, makeDecision("DEC-DUP", 1, 0, approvalDomain.OutcomeApprove, time.Now())); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := repo.Create(ctx, makeDecision("DEC-DUP", 1, 1, approvalDomain.OutcomeApprove, time.Now())); err == nil {
		t.Fatalf("expected unique violation on duplicate decision_id")
	}
}
