package approvalmock

import (
	"context"
	"errors"
	"testing"

	domain "sacco-workflow/internal/domain/approval"
)

func TestRepo_Create_RecordsByDefault(t *testing.T) {
	m := &Repo{}
	d := &domain.Decision{DecisionID: "D1", Outcome: domain.OutcomeApprove}
	if err := m.Create(context.Background(), d); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(m.Created) != 1 || m.Created[0].DecisionID != "D1" {
		t.Fatalf("decision not recorded: %+v", m.Created)
	}

	sentinel := errors.New("insert failed")
	m.CreateFn = func(context.Context, *domain.Decision) error { return sentinel }
	if err := m.Create(context.Background(), d); !errors.Is(err, sentinel) {
		t.Fatalf("Create override: got %v", err)
	}
	if len(m.Created) != 1 {
		t.Fatalf("override must not record")
	}
}

func TestRepo_Reads(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}
	if _, err := m.ListByApplicationID(ctx, 1); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("ListByApplicationID default: %v", err)
	}
	if _, err := m.GetByDecisionID(ctx, "x"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("GetByDecisionID default: %v", err)
	}

	m.ListByApplicationIDFn = func(_ context.Context, id uint64) ([]domain.Decision, error) {
		return []domain.Decision{{ApplicationID: id}}, nil
	}
	got, err := m.ListByApplicationID(ctx, 9)
	if err != nil || len(got) != 1 || got[0].ApplicationID != 9 {
		t.Fatalf("ListByApplicationID: %v %v", got, err)
	}
}
