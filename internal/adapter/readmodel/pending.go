// Package readmodel caches the approval queues in Redis.
package readmodel

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"sacco-workflow/internal/domain/loan"
	"sacco-workflow/internal/logger"

	"github.com/redis/go-redis/v9"
)

const generationKey = "pending:gen"

// Source is the authoritative pending-queue query.
type Source interface {
	ListPendingAtStages(ctx context.Context, stageIndices []int) ([]loan.Application, error)
}

// PendingCache serves queue reads from Redis and falls back to the source
// when Redis misbehaves. Invalidate bumps a generation counter so every
// cached queue goes stale at once; old keys expire on their own.
// Cached rows carry no surrogate id.
type PendingCache struct {
	rdb    *redis.Client
	source Source
	ttl    time.Duration
}

func NewPendingCache(rdb *redis.Client, source Source, ttl time.Duration) *PendingCache {
	return &PendingCache{rdb: rdb, source: source, ttl: ttl}
}

func (c *PendingCache) ListPendingAtStages(ctx context.Context, stageIndices []int) ([]loan.Application, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.WarnContext(ctx, "pending cache unavailable", "error", err)
		return c.source.ListPendingAtStages(ctx, stageIndices)
	}
	key := queueKey(gen, stageIndices)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var apps []loan.Application
		if jerr := json.Unmarshal(raw, &apps); jerr == nil {
			return apps, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.WarnContext(ctx, "pending cache read failed", "key", key, "error", err)
	}

	apps, err := c.source.ListPendingAtStages(ctx, stageIndices)
	if err != nil {
		return nil, err
	}
	if payload, jerr := json.Marshal(apps); jerr == nil {
		if serr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			logger.WarnContext(ctx, "pending cache write failed", "key", key, "error", serr)
		}
	}
	return apps, nil
}

func (c *PendingCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, generationKey).Err()
}

func queueKey(gen int64, stageIndices []int) string {
	parts := make([]string, len(stageIndices))
	for i, idx := range stageIndices {
		parts[i] = strconv.Itoa(idx)
	}
	return "pending:" + strconv.FormatInt(gen, 10) + ":" + strings.Join(parts, ",")
}
