package memory

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mcq-quiz-service/internal/domain"
)

// QuestionRepository caches the question list in process with a TTL to
// avoid repeated backing-store hits. Invalid or missing content falls back
// to the embedded default list, so Load never fails outright.
type QuestionRepository struct {
	loader   QuestionLoader
	fallback []domain.Question
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group
	rnd      *rand.Rand

	mu        sync.RWMutex
	cached    []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader:   loader,
		fallback: DefaultQuestions(),
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) Load(ctx context.Context) ([]domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if r.cached != nil && r.expiresAt.After(now) {
		cached := r.cached
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("questions", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.cached != nil && r.expiresAt.After(now) {
			cached := r.cached
			r.mu.RUnlock()
			return cached, nil
		}
		r.mu.RUnlock()

		questions := r.fallback
		if r.loader != nil {
			loaded, err := r.loader.LoadQuestions(ctx)
			switch {
			case err != nil:
				log.Printf("question load failed, using embedded list: %v", err)
			case !ValidQuestions(loaded):
				log.Printf("question load returned invalid data, using embedded list")
			default:
				questions = loaded
			}
		}

		r.mu.Lock()
		r.cached = questions
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Warm pre-populates the in-process cache; failures are non-fatal.
func (r *QuestionRepository) Warm(ctx context.Context) {
	_, _ = r.Load(ctx)
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return time.Minute
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
