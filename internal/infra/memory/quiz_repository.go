package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"vibe-check-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (static catalog or Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches validated quizzes in process. Concurrent misses for
// the same quiz share one load; entries expire after the TTL plus up to 10%.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.lookup(quizID); ok {
		return quiz, nil
	}
	v, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.lookup(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		if err := quiz.Validate(); err != nil {
			return nil, err
		}
		r.store(quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(domain.Quiz), nil
}

func (r *QuizRepository) lookup(quizID string) (domain.Quiz, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) store(quiz domain.Quiz) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ttl := r.ttl
	if ttl > 0 {
		ttl += time.Duration(r.rnd.Int63n(int64(ttl)/10 + 1))
	}
	r.cache[quiz.ID] = cachedQuiz{quiz: quiz, expiresAt: r.clock().Add(ttl)}
}

// StaticQuizLoader serves quizzes compiled into the binary.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes ...domain.Quiz) *StaticQuizLoader {
	byID := make(map[string]domain.Quiz, len(quizzes))
	for _, q := range quizzes {
		byID[q.ID] = q
	}
	return &StaticQuizLoader{quizzes: byID}
}

// NewDefaultQuizLoader serves only the built-in vibe check.
func NewDefaultQuizLoader() *StaticQuizLoader {
	return NewStaticQuizLoader(domain.DefaultQuiz())
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}
