package repaymentmock

import (
	"context"
	"errors"
	"testing"

	domain "sacco-workflow/internal/domain/repayment"

	"gorm.io/gorm"
)

func TestRepo_Defaults(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}

	if _, err := m.GetByReference(ctx, 1, "ref"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByReference default: want ErrRecordNotFound, got %v", err)
	}
	if err := m.Create(ctx, &domain.Repayment{}); err != nil {
		t.Fatalf("Create default: %v", err)
	}
	if err := m.MarkPosted(ctx, 1); err != nil {
		t.Fatalf("MarkPosted default: %v", err)
	}
}

func TestRepo_Overrides(t *testing.T) {
	ctx := context.Background()
	var posted uint64
	m := &Repo{
		GetByReferenceFn: func(_ context.Context, app uint64, ref string) (*domain.Repayment, error) {
			return &domain.Repayment{ApplicationID: app, Reference: ref}, nil
		},
		MarkPostedFn: func(_ context.Context, id uint64) error { posted = id; return nil },
	}
	got, err := m.GetByReference(ctx, 3, "r-3")
	if err != nil || got.ApplicationID != 3 || got.Reference != "r-3" {
		t.Fatalf("GetByReference: %+v %v", got, err)
	}
	_ = m.MarkPosted(ctx, 42)
	if posted != 42 {
		t.Fatalf("MarkPostedFn not called")
	}
}
