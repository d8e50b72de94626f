package app

import (
	"context"
	"time"

	"mcq-quiz-service/internal/domain"
)

// ScoredMember is one member of a sorted-set range result.
type ScoredMember struct {
	Member string
	Score  float64
}

// CacheClient is the degrade-to-default facade over the shared key/value +
// sorted-set store. Implementations never surface backend errors: on any
// failure they log and return the neutral value for the operation. The core
// treats the store as unreliable and never blocks progress on its success.
type CacheClient interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
	Exists(ctx context.Context, key string) bool
	Increment(ctx context.Context, key string) int64
	SortedInsert(ctx context.Context, key string, score float64, member string) bool
	SortedRangeDesc(ctx context.Context, key string, start, stop int64) []ScoredMember
	DeletePattern(ctx context.Context, pattern string) bool
	Available(ctx context.Context) bool
}

// QuestionRepository supplies the ordered question list (from cache/backing
// store with an embedded fallback).
type QuestionRepository interface {
	Load(ctx context.Context) ([]domain.Question, error)
	Warm(ctx context.Context)
}
