package readmodel

import (
	"context"
	"errors"
	"testing"
	"time"

	"sacco-workflow/internal/domain/loan"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type countingSource struct {
	calls int
	apps  []loan.Application
	err   error
}

func (s *countingSource) ListPendingAtStages(context.Context, []int) ([]loan.Application, error) {
	s.calls++
	return s.apps, s.err
}

func newCache(t *testing.T, src Source) (*miniredis.Miniredis, *PendingCache) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewPendingCache(rdb, src, time.Minute)
}

func TestPendingCache_ServesFromCacheUntilInvalidated(t *testing.T) {
	src := &countingSource{apps: []loan.Application{{
		ApplicationID: "APP-1", State: loan.StatePendingApproval, StageIndex: 1,
		Principal: decimal.RequireFromString("2500.50"),
	}}}
	mr, c := newCache(t, src)
	ctx := context.Background()

	first, err := c.ListPendingAtStages(ctx, []int{1})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, err := c.ListPendingAtStages(ctx, []int{1})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("source calls = %d, want 1", src.calls)
	}
	if len(second) != 1 || second[0].ApplicationID != first[0].ApplicationID || !second[0].Principal.Equal(first[0].Principal) {
		t.Fatalf("cached rows differ: %+v", second)
	}
	if !mr.Exists("pending:0:1") {
		t.Fatalf("expected cached key pending:0:1, keys=%v", mr.Keys())
	}
	if ttl := mr.TTL("pending:0:1"); ttl != time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := c.ListPendingAtStages(ctx, []int{1}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("source calls after invalidate = %d, want 2", src.calls)
	}
	if !mr.Exists("pending:1:1") {
		t.Fatalf("expected key for new generation, keys=%v", mr.Keys())
	}
}

func TestPendingCache_KeysPerStageSet(t *testing.T) {
	src := &countingSource{}
	_, c := newCache(t, src)
	ctx := context.Background()

	_, _ = c.ListPendingAtStages(ctx, []int{0})
	_, _ = c.ListPendingAtStages(ctx, []int{0, 2})
	_, _ = c.ListPendingAtStages(ctx, []int{0, 2})
	if src.calls != 2 {
		t.Fatalf("source calls = %d, want 2", src.calls)
	}
}

func TestPendingCache_FallsBackWhenRedisDown(t *testing.T) {
	src := &countingSource{apps: []loan.Application{{ApplicationID: "APP-2"}}}
	mr, c := newCache(t, src)
	mr.Close()

	apps, err := c.ListPendingAtStages(context.Background(), []int{0})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(apps) != 1 || src.calls != 1 {
		t.Fatalf("want source result, got %v (calls=%d)", apps, src.calls)
	}
	if err := c.Invalidate(context.Background()); err == nil {
		t.Fatalf("expected invalidate error with redis down")
	}
}

func TestPendingCache_SourceErrorNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("db gone")}
	mr, c := newCache(t, src)

	if _, err := c.ListPendingAtStages(context.Background(), []int{0}); err == nil {
		t.Fatalf("expected source error")
	}
	if mr.Exists("pending:0:0") {
		t.Fatalf("error must not be cached")
	}
}
