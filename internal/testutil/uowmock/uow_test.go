package uowmock

import (
	"context"
	"errors"
	"testing"

	"sacco-workflow/internal/domain/loan"
	"sacco-workflow/internal/domain/uow"
	"sacco-workflow/internal/testutil/approvalmock"
	"sacco-workflow/internal/testutil/loanmock"
)

func TestUoW_WithinTx_Happy(t *testing.T) {
	ctx := context.Background()

	apps := &loanmock.Repo{}
	decs := &approvalmock.Repo{}
	repos := uow.Repos{Applications: apps, Decisions: decs}

	innerCalled := false
	m := &UoW{
		WithinTxFn: func(gotCtx context.Context, fn func(r uow.Repos) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinTx: ctx mismatch")
			}
			return fn(repos)
		},
	}

	err := m.WithinTx(ctx, func(r uow.Repos) error {
		innerCalled = true
		if r.Applications != apps || r.Decisions != decs {
			t.Fatalf("WithinTx: repos not forwarded correctly")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinTx: inner fn not called")
	}
}

func TestUoW_Default_Unimplemented(t *testing.T) {
	ctx := context.Background()
	m := New()
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx default: want errUnimplemented, got %v", err)
	}
	if err := m.WithinApplicationTx(ctx, "APP-X", func(uow.Repos, *loan.Application) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinApplicationTx default: want errUnimplemented, got %v", err)
	}
}

func TestPassthrough(t *testing.T) {
	ctx := context.Background()
	repos := uow.Repos{Applications: &loanmock.Repo{}}
	locked := &loan.Application{ID: 7, ApplicationID: "APP-7"}

	m := Passthrough(repos, func(id string) (*loan.Application, error) {
		if id != "APP-7" {
			return nil, errors.New("unexpected id " + id)
		}
		return locked, nil
	})

	err := m.WithinApplicationTx(ctx, "APP-7", func(r uow.Repos, a *loan.Application) error {
		if a != locked || r.Applications != repos.Applications {
			t.Fatalf("passthrough did not forward: %+v", a)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinApplicationTx: %v", err)
	}

	sentinel := errors.New("missing")
	m = Passthrough(repos, func(string) (*loan.Application, error) { return nil, sentinel })
	if err := m.WithinApplicationTx(ctx, "APP-8", func(uow.Repos, *loan.Application) error {
		t.Fatalf("callback must not run when lock fails")
		return nil
	}); !errors.Is(err, sentinel) {
		t.Fatalf("want sentinel, got %v", err)
	}
}

func TestUoW_FluentSetters_And_Reset(t *testing.T) {
	m := New().
		WithWithinTx(func(context.Context, func(uow.Repos) error) error { return nil }).
		WithWithinApplicationTx(func(context.Context, string, func(uow.Repos, *loan.Application) error) error { return nil })
	if m.WithinTxFn == nil || m.WithinApplicationTxFn == nil {
		t.Fatalf("fluent setters didn't assign funcs")
	}
	m.Reset()
	if m.WithinTxFn != nil || m.WithinApplicationTxFn != nil {
		t.Fatalf("Reset should clear function fields")
	}
}
