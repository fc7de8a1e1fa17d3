package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"vibe-check-service/internal/app"
	"vibe-check-service/internal/domain"
	"vibe-check-service/internal/infra/memory"
)

// seqRand returns the values of seq in turn, reduced modulo n.
type seqRand struct {
	mu  sync.Mutex
	seq []int
	i   int
}

func (r *seqRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.seq[r.i%len(r.seq)]
	r.i++
	return v % n
}

func pointsQuiz() domain.Quiz {
	option := func(id string, pts ...domain.VibePoints) domain.Option {
		return domain.Option{ID: id, Text: id, Points: pts}
	}
	p := func(vibe string, delta int) domain.VibePoints { return domain.VibePoints{Vibe: vibe, Delta: delta} }
	return domain.Quiz{
		ID: "test-quiz",
		Questions: []domain.Question{
			{ID: "q1", Prompt: "one", Options: []domain.Option{option("a", p("chaoticFun", 2)), option("b", p("mainCharacter", 3)), option("c")}},
			{ID: "q2", Prompt: "two", Options: []domain.Option{option("a", p("chaoticFun", 1), p("lowkeyChill", 2)), option("b", p("chaoticFun", 3)), option("c")}},
			{ID: "q3", Prompt: "three", Options: []domain.Option{option("a", p("lowkeyChill", 2)), option("b", p("softBoi", 1)), option("c")}},
			{ID: "q4", Prompt: "four", Options: []domain.Option{option("a", p("mainCharacter", 1)), option("b", p("softBoi", 1)), option("c")}},
			{ID: "q5", Prompt: "five", Options: []domain.Option{option("a", p("softBoi", 2)), option("b", p("unapologeticallyExtra", 5)), option("c")}},
		},
		Vibes: domain.DefaultVibes(),
	}
}

type failingSubmissions struct {
	memory.SubmissionStore
	mu    sync.Mutex
	fail  bool
	calls int
}

func (f *failingSubmissions) Create(ctx context.Context, s domain.Submission) (domain.Submission, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return domain.Submission{}, errors.New("connection reset")
	}
	return f.SubmissionStore.Create(ctx, s)
}

func (f *failingSubmissions) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

type countingVisits struct {
	mu    sync.Mutex
	count int64
	calls int
	err   error
}

func (c *countingVisits) Count(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, nil
}

func (c *countingVisits) Increment(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	c.count++
	return c.count, nil
}

// setCount simulates another instance moving the shared counter.
func (c *countingVisits) setCount(n int64) {
	c.mu.Lock()
	c.count = n
	c.mu.Unlock()
}

func (c *countingVisits) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type testEnv struct {
	service     *app.QuizService
	sessions    *memory.SessionStore
	submissions *failingSubmissions
	visits      *countingVisits
	counter     *app.Counter
}

func newTestEnv(quiz domain.Quiz, rnd app.Rand) *testEnv {
	sessions := memory.NewSessionStore()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(quiz), 5*time.Minute)
	submissions := &failingSubmissions{}
	visits := &countingVisits{}
	counter := app.NewCounter(visits, nil, time.Second)
	service := app.NewQuizService(sessions, quizzes, submissions, counter,
		app.WithQuizID(quiz.ID),
		app.WithRand(rnd),
		app.WithClock(func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }),
	)
	return &testEnv{service: service, sessions: sessions, submissions: submissions, visits: visits, counter: counter}
}
