package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"mcq-quiz-service/internal/domain"
)

// QuizService wires the session registry, question source, and ranking
// aggregator into the connection-level use cases.
type QuizService struct {
	registry  *Registry
	questions QuestionRepository
	agg       *Aggregator
	cache     CacheClient
	rules     Rules
	now       func() time.Time
}

func NewQuizService(registry *Registry, questions QuestionRepository, agg *Aggregator, cache CacheClient, rules Rules) *QuizService {
	return &QuizService{
		registry:  registry,
		questions: questions,
		agg:       agg,
		cache:     cache,
		rules:     rules,
		now:       time.Now,
	}
}

// Connect creates a session for a new connection, registers it, and starts
// the quiz lifecycle. The returned session's Outbound channel must be
// drained by the caller.
func (s *QuizService) Connect(ctx context.Context) (*Session, error) {
	questions, err := s.questions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	id := "student_" + uuid.NewString()
	session := newSession(id, questions, s.rules, s.agg, s.now)
	session.onUpdate = s.registry.Refresh
	session.onClose = s.teardown

	s.registry.Add(session)
	log.Printf("session %s connected (%d active)", id, s.registry.Len())

	session.Begin(s.cache.Available(ctx))
	return session, nil
}

// Disconnect tears a session down on connection close. Idempotent: the
// natural end-of-quiz shutdown and the transport's deferred cleanup may
// both land here.
func (s *QuizService) Disconnect(id string) {
	if session, ok := s.registry.Get(id); ok {
		session.Close()
	}
	s.teardown(id)
}

func (s *QuizService) teardown(id string) {
	s.registry.Remove(id)
	log.Printf("session %s closed (%d active)", id, s.registry.Len())
}

// Stats merges the cache-backed counters with the authoritative in-memory
// active count.
func (s *QuizService) Stats(ctx context.Context) domain.Statistics {
	stats := s.agg.Stats(ctx)
	stats.ActiveCount = s.registry.Len()
	return stats
}

// Leaderboard returns the anonymized top-N ranking snapshot.
func (s *QuizService) Leaderboard(ctx context.Context, limit int) []domain.RankedEntry {
	if limit <= 0 {
		limit = s.rules.TopN
	}
	return s.agg.TopN(ctx, limit)
}

// Reset clears the shared quiz/session namespaces. Test/operational use only.
func (s *QuizService) Reset(ctx context.Context) bool {
	return s.agg.Reset(ctx)
}

// QuestionCount reports how many questions a new session would receive.
func (s *QuizService) QuestionCount(ctx context.Context) int {
	questions, err := s.questions.Load(ctx)
	if err != nil {
		return 0
	}
	return len(questions)
}

// ActiveSessionIDs lists live sessions, anonymized for external exposure.
func (s *QuizService) ActiveSessionIDs() []string {
	ids := s.registry.ActiveIDs()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, anonymizeID(id))
	}
	return out
}

// CacheAvailable reports shared-store connectivity.
func (s *QuizService) CacheAvailable(ctx context.Context) bool {
	return s.cache.Available(ctx)
}
