package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lmercier/bulletin-analyzer/model"
	"github.com/lmercier/bulletin-analyzer/services/pipeline"
	"github.com/lmercier/bulletin-analyzer/utils/cache"
)

const (
	// SuccessOutcomeTTL keeps finished outcomes around long enough for the
	// client to poll them in.
	SuccessOutcomeTTL = 1 * time.Hour
	// FailureOutcomeTTL keeps failures longer so users can come back and read
	// what went wrong.
	FailureOutcomeTTL = 24 * time.Hour
)

// RedisResultStore persists terminal job outcomes in Redis, keyed by job id.
// It satisfies pipeline.ResultStore.
type RedisResultStore struct {
	cache *cache.RedisCache
}

// NewRedisResultStore creates a result store backed by the given cache
func NewRedisResultStore(c *cache.RedisCache) *RedisResultStore {
	return &RedisResultStore{cache: c}
}

func outcomeKey(jobID string) string {
	return fmt.Sprintf(model.RedisKeyAnalysisOutcome, jobID)
}

// Put stores a terminal outcome. Failures get the longer TTL.
func (s *RedisResultStore) Put(ctx context.Context, jobID string, outcome *model.AnalysisOutcome) error {
	ttl := SuccessOutcomeTTL
	if outcome.Failed() {
		ttl = FailureOutcomeTTL
	}
	return s.cache.SetJSON(ctx, outcomeKey(jobID), outcome, ttl)
}

// Get retrieves a stored outcome, pipeline.ErrOutcomeNotFound when the key is
// missing or expired.
func (s *RedisResultStore) Get(ctx context.Context, jobID string) (*model.AnalysisOutcome, error) {
	var outcome model.AnalysisOutcome
	err := s.cache.GetJSON(ctx, outcomeKey(jobID), &outcome)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, pipeline.ErrOutcomeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}
