package app

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"mcq-quiz-service/internal/domain"
)

// Cache keys shared with external monitoring tooling.
const (
	leaderboardKey   = "quiz:leaderboard"
	statKeyAttempts  = "quiz:stats:total_attempts"
	statKeyPassed    = "quiz:stats:passed"
	statKeyAverage   = "quiz:stats:average_score"
	resetPatternQuiz = "quiz:*"
	resetPatternSess = "session:*"
)

const anonymizedIDLen = 12

// Aggregator maintains the shared ranking structure and running aggregate
// counters. Every operation goes through the cache facade and inherits its
// degrade-to-neutral behavior: a read during an outage yields an empty
// snapshot, never an error, and quiz correctness is unaffected.
type Aggregator struct {
	cache    CacheClient
	passMark int
}

func NewAggregator(cache CacheClient, passMark int) *Aggregator {
	return &Aggregator{cache: cache, passMark: passMark}
}

// Record publishes one completed session. Counters are updated
// best-effort; last-write-wins is acceptable because the store is
// explicitly non-authoritative.
func (a *Aggregator) Record(ctx context.Context, entry domain.RankingEntry) {
	member, err := json.Marshal(entry)
	if err != nil {
		return
	}
	a.cache.SortedInsert(ctx, leaderboardKey, float64(entry.Percentage), string(member))

	total := a.cache.Increment(ctx, statKeyAttempts)
	if entry.Percentage >= a.passMark {
		a.cache.Increment(ctx, statKeyPassed)
	}
	if total <= 0 {
		// Increment degraded; skip the average rather than corrupt it.
		return
	}
	oldAvg := 0.0
	if raw, ok := a.cache.Get(ctx, statKeyAverage); ok {
		oldAvg, _ = strconv.ParseFloat(raw, 64)
	}
	newAvg := ((oldAvg * float64(total-1)) + float64(entry.Percentage)) / float64(total)
	newAvg = math.Round(newAvg*100) / 100
	a.cache.Set(ctx, statKeyAverage, strconv.FormatFloat(newAvg, 'f', 2, 64), 0)
}

// TopN returns the limit highest-percentage entries, descending. Ties are
// broken deterministically by earlier completion, then session id, rather
// than whatever order the sorted set happens to keep equal scores in.
// Session identifiers are anonymized for external exposure.
func (a *Aggregator) TopN(ctx context.Context, limit int) []domain.RankedEntry {
	if limit <= 0 {
		return nil
	}
	members := a.cache.SortedRangeDesc(ctx, leaderboardKey, 0, int64(limit-1))
	entries := make([]domain.RankingEntry, 0, len(members))
	for _, m := range members {
		var e domain.RankingEntry
		if err := json.Unmarshal([]byte(m.Member), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Percentage != entries[j].Percentage {
			return entries[i].Percentage > entries[j].Percentage
		}
		if !entries[i].CompletedAt.Equal(entries[j].CompletedAt) {
			return entries[i].CompletedAt.Before(entries[j].CompletedAt)
		}
		return entries[i].SessionID < entries[j].SessionID
	})

	ranked := make([]domain.RankedEntry, 0, len(entries))
	for i, e := range entries {
		ranked = append(ranked, domain.RankedEntry{
			Rank:             i + 1,
			SessionID:        anonymizeID(e.SessionID),
			Score:            e.Score,
			Percentage:       e.Percentage,
			TotalTimeSeconds: e.TotalTimeSeconds,
			CompletedAt:      e.CompletedAt,
		})
	}
	return ranked
}

// Stats reads the aggregate counters. ActiveCount is owned by the
// in-memory registry and filled in by the caller.
func (a *Aggregator) Stats(ctx context.Context) domain.Statistics {
	stats := domain.Statistics{}
	if raw, ok := a.cache.Get(ctx, statKeyAttempts); ok {
		stats.TotalAttempts, _ = strconv.Atoi(raw)
	}
	if raw, ok := a.cache.Get(ctx, statKeyPassed); ok {
		stats.Passed, _ = strconv.Atoi(raw)
	}
	if raw, ok := a.cache.Get(ctx, statKeyAverage); ok {
		stats.AverageScore, _ = strconv.ParseFloat(raw, 64)
	}
	return stats
}

// Reset destructively clears every key under this system's namespaces.
// Intended for test/operational use only.
func (a *Aggregator) Reset(ctx context.Context) bool {
	quizOK := a.cache.DeletePattern(ctx, resetPatternQuiz)
	sessOK := a.cache.DeletePattern(ctx, resetPatternSess)
	return quizOK && sessOK
}

func anonymizeID(id string) string {
	if len(id) <= anonymizedIDLen {
		return id
	}
	return id[:anonymizedIDLen] + "..."
}
