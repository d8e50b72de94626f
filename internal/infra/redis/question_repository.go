package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"time"

	"golang.org/x/sync/singleflight"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/infra/memory"
)

const questionsKey = "quiz:questions"

// QuestionRepository mirrors the question list into the cache for
// cross-instance sharing: JSON array under quiz:questions with a TTL.
// On a cache miss, corrupt payload, or validation failure it falls through
// the loader and finally the embedded default list; a cache outage can
// never stop the quiz from running.
type QuestionRepository struct {
	cache    app.CacheClient
	loader   memory.QuestionLoader
	fallback []domain.Question
	ttl      time.Duration
	sf       singleflight.Group
	rnd      *rand.Rand
}

func NewQuestionRepository(cache app.CacheClient, loader memory.QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		cache:    cache,
		loader:   loader,
		fallback: memory.DefaultQuestions(),
		ttl:      ttl,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var _ app.QuestionRepository = (*QuestionRepository)(nil)

func (r *QuestionRepository) Load(ctx context.Context) ([]domain.Question, error) {
	if questions, ok := r.fromCache(ctx); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(questionsKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if questions, ok := r.fromCache(ctx); ok {
			return questions, nil
		}

		questions := r.fallback
		if r.loader != nil {
			loaded, err := r.loader.LoadQuestions(ctx)
			switch {
			case err != nil:
				log.Printf("question load failed, using embedded list: %v", err)
			case !memory.ValidQuestions(loaded):
				log.Printf("question load returned invalid data, using embedded list")
			default:
				questions = loaded
			}
		}

		if data, err := json.Marshal(questions); err == nil {
			r.cache.Set(ctx, questionsKey, string(data), r.ttlWithJitter())
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Warm opportunistically populates the cache at process start; failures
// are non-fatal.
func (r *QuestionRepository) Warm(ctx context.Context) {
	if _, err := r.Load(ctx); err != nil {
		log.Printf("question warm-up failed: %v", err)
	}
}

func (r *QuestionRepository) fromCache(ctx context.Context) ([]domain.Question, bool) {
	raw, ok := r.cache.Get(ctx, questionsKey)
	if !ok {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		log.Printf("cached questions corrupt, reloading: %v", err)
		return nil, false
	}
	if !memory.ValidQuestions(questions) {
		log.Printf("cached questions failed validation, reloading")
		return nil, false
	}
	return questions, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return time.Hour
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
