package app_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"vibe-check-service/internal/app"
	"vibe-check-service/internal/domain"
	"vibe-check-service/internal/infra/memory"
)

func playThrough(t *testing.T, env *testEnv, sessionID string, options ...string) domain.SessionView {
	t.Helper()
	ctx := context.Background()
	quiz, err := env.service.Quiz(ctx)
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}

	var view domain.SessionView
	for i, opt := range options {
		view, err = env.service.Answer(ctx, sessionID, domain.AnswerSubmission{
			QuestionID: quiz.Questions[i].ID,
			OptionID:   opt,
		})
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}
	return view
}

func startSession(t *testing.T, env *testEnv, sessionID, name string) {
	t.Helper()
	ctx := context.Background()
	if _, err := env.service.Open(ctx, sessionID); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := env.service.SubmitIntake(ctx, sessionID, domain.Intake{DisplayName: name}); err != nil {
		t.Fatalf("intake: %v", err)
	}
	if _, err := env.service.Start(ctx, sessionID); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func TestFullRunWinsLowkeyChill(t *testing.T) {
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{0}})
	startSession(t, env, "s1", "Sam")

	view := playThrough(t, env, "s1", "a", "a", "a", "a", "a")

	if view.Stage != domain.StageResults || view.Result == nil {
		t.Fatalf("expected results, got %+v", view)
	}
	if view.Result.ID != "lowkeyChill" {
		t.Fatalf("expected lowkeyChill, got %s", view.Result.ID)
	}
	want := []domain.ScoreEntry{
		{Vibe: "chaoticFun", Score: 3},
		{Vibe: "lowkeyChill", Score: 4},
		{Vibe: "mainCharacter", Score: 1},
		{Vibe: "softBoi", Score: 2},
	}
	if !reflect.DeepEqual(view.Scores, want) {
		t.Fatalf("unexpected scores %+v", view.Scores)
	}
	if view.Question != nil {
		t.Fatalf("expected no current question on results")
	}
}

func TestIntakeValidationKeepsStage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{0}})
	if _, err := env.service.Open(ctx, "s1"); err != nil {
		t.Fatalf("open: %v", err)
	}

	view, err := env.service.SubmitIntake(ctx, "s1", domain.Intake{DisplayName: "   "})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "displayName" {
		t.Fatalf("expected displayName validation error, got %v", err)
	}
	if view.Stage != domain.StageIntake {
		t.Fatalf("expected intake stage, got %s", view.Stage)
	}
	if kind := app.ErrorKind(err); kind != "validation" {
		t.Fatalf("expected validation kind, got %s", kind)
	}

	zero := 0
	if _, err := env.service.SubmitIntake(ctx, "s1", domain.Intake{DisplayName: "Sam", Age: &zero}); !domain.IsValidation(err) {
		t.Fatalf("expected age validation error, got %v", err)
	}
	if _, err := env.service.SubmitIntake(ctx, "s1", domain.Intake{DisplayName: "Sam", Gender: "robot"}); !domain.IsValidation(err) {
		t.Fatalf("expected gender validation error, got %v", err)
	}

	view, err = env.service.SubmitIntake(ctx, "s1", domain.Intake{DisplayName: "  Sam  "})
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if view.Stage != domain.StageWelcome || view.Intake.DisplayName != "Sam" {
		t.Fatalf("expected trimmed intake on welcome, got %+v", view)
	}
}

func TestIntakeRejectsOverlongFields(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{0}})
	if _, err := env.service.Open(ctx, "s1"); err != nil {
		t.Fatalf("open: %v", err)
	}

	cases := []struct {
		field  string
		intake domain.Intake
	}{
		{"displayName", domain.Intake{DisplayName: strings.Repeat("a", 9000)}},
		{"instagram", domain.Intake{DisplayName: "Sam", Instagram: strings.Repeat("i", 65)}},
		{"twitter", domain.Intake{DisplayName: "Sam", Twitter: strings.Repeat("t", 65)}},
		{"facebook", domain.Intake{DisplayName: "Sam", Facebook: strings.Repeat("f", 65)}},
	}
	for _, tc := range cases {
		view, err := env.service.SubmitIntake(ctx, "s1", tc.intake)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Fatalf("expected %s validation error, got %v", tc.field, err)
		}
		if view.Stage != domain.StageIntake {
			t.Fatalf("expected intake stage after %s error, got %s", tc.field, view.Stage)
		}
	}

	// Caps count characters, not bytes.
	name := strings.Repeat("🌸", 40)
	if _, err := env.service.SubmitIntake(ctx, "s1", domain.Intake{DisplayName: name}); err != nil {
		t.Fatalf("expected a 40 character name to pass: %v", err)
	}
}

func TestProgressionIsMonotonic(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{0}})
	startSession(t, env, "s1", "Sam")

	view, err := env.service.View(ctx, "s1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Stage != domain.StageQuestion || view.QuestionIndex != 0 || view.Question.ID != "q1" {
		t.Fatalf("expected first question, got %+v", view)
	}

	for i := 0; i < 4; i++ {
		view, err = env.service.Answer(ctx, "s1", domain.AnswerSubmission{QuestionID: view.Question.ID, OptionID: "c"})
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if view.QuestionIndex != i+1 {
			t.Fatalf("expected index %d, got %d", i+1, view.QuestionIndex)
		}
	}

	// Replaying an earlier question neither advances nor scores.
	stale, err := env.service.Answer(ctx, "s1", domain.AnswerSubmission{QuestionID: "q1", OptionID: "a"})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if stale.QuestionIndex != 4 || len(stale.Scores) != 0 {
		t.Fatalf("stale answer changed the session: %+v", stale)
	}

	if _, err := env.service.Answer(ctx, "s1", domain.AnswerSubmission{QuestionID: "q5", OptionID: "zzz"}); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected option not found, got %v", err)
	}
}

func TestFinalAnswerTransitionsOnceAndCountsVisitOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{0}})
	startSession(t, env, "s1", "Sam")

	view := playThrough(t, env, "s1", "c", "c", "c", "c", "b")
	if view.Stage != domain.StageResults || view.Result.ID != "unapologeticallyExtra" {
		t.Fatalf("expected unapologeticallyExtra result, got %+v", view)
	}

	if _, err := env.service.Answer(ctx, "s1", domain.AnswerSubmission{QuestionID: "q5", OptionID: "a"}); !errors.Is(err, domain.ErrInvalidStage) {
		t.Fatalf("expected invalid stage for extra answer, got %v", err)
	}
	if _, err := env.service.Start(ctx, "s1"); !errors.Is(err, domain.ErrInvalidStage) {
		t.Fatalf("expected invalid stage for start, got %v", err)
	}

	env.counter.Wait()
	if calls := env.visits.Calls(); calls != 1 {
		t.Fatalf("expected one visit write, got %d", calls)
	}
	if got := env.counter.Value(); got != 1 {
		t.Fatalf("expected visit count 1, got %d", got)
	}
}

func TestNoPointsFallsBackToRandomVibe(t *testing.T) {
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{3}})
	startSession(t, env, "s1", "Sam")

	view := playThrough(t, env, "s1", "c", "c", "c", "c", "c")
	if want := domain.DefaultVibes()[3].ID; view.Result.ID != want {
		t.Fatalf("expected %s, got %s", want, view.Result.ID)
	}
}

func TestRestartClearsAndReplaysDeterministically(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{0}})
	startSession(t, env, "s1", "Sam")
	first := playThrough(t, env, "s1", "b", "b", "a", "b", "a")

	view, err := env.service.Restart(ctx, "s1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if view.Stage != domain.StageIntake || len(view.Scores) != 0 || view.Intake != nil || view.Result != nil || view.QuestionIndex != 0 {
		t.Fatalf("expected a cleared session, got %+v", view)
	}

	if _, err := env.service.Start(ctx, "s1"); !errors.Is(err, domain.ErrInvalidStage) {
		t.Fatalf("expected start to need intake again, got %v", err)
	}
	if _, err := env.service.SubmitIntake(ctx, "s1", domain.Intake{DisplayName: "Sam"}); err != nil {
		t.Fatalf("intake: %v", err)
	}
	if _, err := env.service.Start(ctx, "s1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	second := playThrough(t, env, "s1", "b", "b", "a", "b", "a")

	if first.Result.ID != second.Result.ID || !reflect.DeepEqual(first.Scores, second.Scores) {
		t.Fatalf("replay differs: %+v vs %+v", first, second)
	}
	// mainCharacter, chaoticFun and softBoi tie at 3; the first touched wins.
	if second.Result.ID != "mainCharacter" {
		t.Fatalf("expected mainCharacter, got %s", second.Result.ID)
	}
}

func TestPublishFailureLeavesResultsAndAllowsRetry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{1}})
	startSession(t, env, "s1", "Sam")
	playThrough(t, env, "s1", "a", "a", "a", "a", "a")

	env.submissions.setFail(true)
	_, err := env.service.Publish(ctx, "s1", domain.PublishRequest{DisplayName: "Sammy"})
	if !errors.Is(err, domain.ErrPublishFailed) {
		t.Fatalf("expected publish failure, got %v", err)
	}
	if kind := app.ErrorKind(err); kind != "persistence" {
		t.Fatalf("expected persistence kind, got %s", kind)
	}

	view, err := env.service.View(ctx, "s1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Stage != domain.StageResults || view.Publishing || view.Published {
		t.Fatalf("expected retryable results stage, got %+v", view)
	}

	env.submissions.setFail(false)
	saved, err := env.service.Publish(ctx, "s1", domain.PublishRequest{DisplayName: "Sammy", Instagram: "@sam"})
	if err != nil {
		t.Fatalf("publish retry: %v", err)
	}
	if saved.DisplayName != "Sammy" || saved.VibeID != "lowkeyChill" || saved.Rating != 9 || !saved.ShowPublicly {
		t.Fatalf("unexpected submission %+v", saved)
	}
	if saved.ID == "" || saved.Gender != domain.GenderOther {
		t.Fatalf("expected id and normalized gender, got %+v", saved)
	}

	if _, err := env.service.Publish(ctx, "s1", domain.PublishRequest{DisplayName: "Sammy"}); !errors.Is(err, domain.ErrAlreadyPublished) {
		t.Fatalf("expected already published, got %v", err)
	}
	if env.submissions.calls != 2 {
		t.Fatalf("expected 2 store calls, got %d", env.submissions.calls)
	}
}

func TestPublishRejectsOverlongOverridesBeforeStoring(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{0}})
	startSession(t, env, "s1", "Sam")
	playThrough(t, env, "s1", "a", "a", "a", "a", "a")

	_, err := env.service.Publish(ctx, "s1", domain.PublishRequest{DisplayName: strings.Repeat("x", 9000)})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "displayName" {
		t.Fatalf("expected displayName validation error, got %v", err)
	}
	if _, err := env.service.Publish(ctx, "s1", domain.PublishRequest{Twitter: strings.Repeat("t", 65)}); !domain.IsValidation(err) {
		t.Fatalf("expected twitter validation error, got %v", err)
	}
	if env.submissions.calls != 0 {
		t.Fatalf("expected nothing stored, got %d calls", env.submissions.calls)
	}

	if _, err := env.service.Publish(ctx, "s1", domain.PublishRequest{DisplayName: "Sammy"}); err != nil {
		t.Fatalf("publish after rejected override: %v", err)
	}
}

// blockingSubmissions holds Create until release delivers its outcome.
type blockingSubmissions struct {
	memory.SubmissionStore
	entered chan struct{}
	release chan error
}

func (b *blockingSubmissions) Create(ctx context.Context, s domain.Submission) (domain.Submission, error) {
	b.entered <- struct{}{}
	if err := <-b.release; err != nil {
		return domain.Submission{}, err
	}
	return b.SubmissionStore.Create(ctx, s)
}

func TestPublishAllowsOneInFlight(t *testing.T) {
	ctx := context.Background()
	store := &blockingSubmissions{entered: make(chan struct{}, 1), release: make(chan error)}
	quiz := pointsQuiz()
	service := app.NewQuizService(
		memory.NewSessionStore(),
		memory.NewQuizRepository(memory.NewStaticQuizLoader(quiz), time.Minute),
		store, nil,
		app.WithQuizID(quiz.ID),
		app.WithRand(&seqRand{seq: []int{0}}),
	)
	env := &testEnv{service: service}
	startSession(t, env, "s1", "Sam")
	playThrough(t, env, "s1", "a", "a", "a", "a", "a")

	first := make(chan error, 1)
	go func() {
		_, err := service.Publish(ctx, "s1", domain.PublishRequest{})
		first <- err
	}()
	<-store.entered

	view, err := service.View(ctx, "s1")
	if err != nil || !view.Publishing {
		t.Fatalf("expected publishing state, got %+v (%v)", view, err)
	}
	_, err = service.Publish(ctx, "s1", domain.PublishRequest{})
	if !errors.Is(err, domain.ErrPublishInFlight) {
		t.Fatalf("expected publish in flight, got %v", err)
	}
	if kind := app.ErrorKind(err); kind != "stage" {
		t.Fatalf("expected stage kind, got %s", kind)
	}

	store.release <- errors.New("connection reset")
	if err := <-first; !errors.Is(err, domain.ErrPublishFailed) {
		t.Fatalf("expected first publish to fail, got %v", err)
	}

	// The failed attempt frees the slot.
	second := make(chan error, 1)
	go func() {
		_, err := service.Publish(ctx, "s1", domain.PublishRequest{})
		second <- err
	}()
	<-store.entered
	store.release <- nil
	if err := <-second; err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestPublishRequiresResults(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{0}})
	startSession(t, env, "s1", "Sam")

	if _, err := env.service.Publish(ctx, "s1", domain.PublishRequest{}); !errors.Is(err, domain.ErrInvalidStage) {
		t.Fatalf("expected invalid stage, got %v", err)
	}
	if _, err := env.service.Publish(ctx, "unknown", domain.PublishRequest{}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestBuildSubmission(t *testing.T) {
	age := 21
	intake := domain.Intake{
		DisplayName: "Sam",
		Age:         &age,
		Gender:      domain.GenderPreferNotToSay,
		Twitter:     "sam_tw",
	}
	vibe := domain.DefaultVibes()[2]

	anon := app.BuildSubmission(intake, domain.PublishRequest{DisplayName: "Sammy", Anonymous: true}, vibe, &seqRand{seq: []int{0}})
	if anon.DisplayName != "Anonymous" || anon.ShowPublicly {
		t.Fatalf("expected hidden anonymous submission, got %+v", anon)
	}
	if anon.Age != 21 || anon.Gender != domain.GenderOther || anon.Rating != 8 || anon.Twitter != "sam_tw" {
		t.Fatalf("unexpected anonymous fields %+v", anon)
	}

	named := app.BuildSubmission(intake, domain.PublishRequest{Twitter: "new_tw"}, vibe, &seqRand{seq: []int{2}})
	if named.DisplayName != "Sam" || !named.ShowPublicly || named.Rating != 10 || named.Twitter != "new_tw" || named.VibeID != vibe.ID {
		t.Fatalf("unexpected named submission %+v", named)
	}

	for i := 0; i < 20; i++ {
		s := app.BuildSubmission(domain.Intake{DisplayName: "x"}, domain.PublishRequest{}, vibe, &seqRand{seq: []int{i}})
		if s.Rating < 8 || s.Rating > 10 {
			t.Fatalf("rating %d out of range", s.Rating)
		}
		if s.Age != 0 {
			t.Fatalf("expected age 0 when not given, got %d", s.Age)
		}
	}
}

func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{0}})
	if _, err := env.service.Answer(ctx, "missing", domain.AnswerSubmission{OptionID: "a"}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}

	if _, err := env.service.Open(ctx, "s1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	env.service.Close(ctx, "s1")
	if _, err := env.service.View(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found after close, got %v", err)
	}
}

func TestOpenRefusesSessionAlreadyHeld(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(pointsQuiz(), &seqRand{seq: []int{0}})
	if _, err := env.service.Open(ctx, "s1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := env.service.SubmitIntake(ctx, "s1", domain.Intake{DisplayName: "Alice"}); err != nil {
		t.Fatalf("intake: %v", err)
	}

	view, err := env.service.Open(ctx, "s1")
	if !errors.Is(err, domain.ErrSessionInUse) {
		t.Fatalf("expected session in use, got %v", err)
	}
	if view.Intake != nil {
		t.Fatalf("refused open leaked intake %+v", view.Intake)
	}
	if kind := app.ErrorKind(err); kind != "session" {
		t.Fatalf("expected session kind, got %s", kind)
	}

	held, err := env.service.View(ctx, "s1")
	if err != nil || held.Stage != domain.StageWelcome {
		t.Fatalf("expected the owner's session untouched, got %+v (%v)", held, err)
	}
}
