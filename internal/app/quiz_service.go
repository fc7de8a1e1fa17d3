package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vibe-check-service/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
// Create fails with domain.ErrSessionInUse when the ID is already held.
type SessionRepository interface {
	Create(sessionID string) (*Session, error)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// SubmissionRepository persists published results and lists the public ones.
type SubmissionRepository interface {
	Create(ctx context.Context, submission domain.Submission) (domain.Submission, error)
	Recent(ctx context.Context, limit int) ([]domain.Submission, error)
}

const (
	anonymousName = "Anonymous"
	minRating     = 8
	maxRating     = 10
)

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions    SessionRepository
	quizzes     QuizRepository
	submissions SubmissionRepository
	counter     *Counter
	quizID      string

	logger *zap.Logger
	rnd    Rand
	now    func() time.Time
	newID  func() string
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithRand pins the randomness used for the empty-score fallback and ratings.
func WithRand(r Rand) Option {
	return func(s *QuizService) { s.rnd = r }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *QuizService) { s.logger = l }
}

// WithClock sets the time source for submissions.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithQuizID selects which quiz sessions play. Defaults to domain.DefaultQuizID.
func WithQuizID(id string) Option {
	return func(s *QuizService) { s.quizID = id }
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, submissions SubmissionRepository, counter *Counter, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:    store,
		quizzes:     quizzes,
		submissions: submissions,
		counter:     counter,
		quizID:      domain.DefaultQuizID,
		logger:      zap.NewNop(),
		rnd:         defaultRand(),
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quiz returns the quiz sessions are playing.
func (s *QuizService) Quiz(ctx context.Context) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, s.quizID)
}

// Open creates a session in the intake stage. The caller owns it until Close;
// an ID that is already open is refused.
func (s *QuizService) Open(ctx context.Context, sessionID string) (domain.SessionView, error) {
	quiz, err := s.Quiz(ctx)
	if err != nil {
		return domain.SessionView{}, err
	}
	session, err := s.sessions.Create(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return session.view(quiz), nil
}

// View returns the current snapshot of a session.
func (s *QuizService) View(ctx context.Context, sessionID string) (domain.SessionView, error) {
	session, quiz, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return session.view(quiz), nil
}

// SubmitIntake validates intake data and moves the session to the welcome stage.
func (s *QuizService) SubmitIntake(ctx context.Context, sessionID string, intake domain.Intake) (domain.SessionView, error) {
	session, quiz, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	if err := session.submitIntake(intake); err != nil {
		return session.view(quiz), err
	}
	return session.view(quiz), nil
}

// Start moves from the welcome stage to the first question and bumps the
// visit counter without waiting for it.
func (s *QuizService) Start(ctx context.Context, sessionID string) (domain.SessionView, error) {
	session, quiz, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	if err := session.start(); err != nil {
		return session.view(quiz), err
	}
	if s.counter != nil {
		s.counter.Bump(ctx)
	}
	s.logger.Debug("quiz started", zap.String("session", sessionID))
	return session.view(quiz), nil
}

// Answer records the selected option for the current question.
func (s *QuizService) Answer(ctx context.Context, sessionID string, submission domain.AnswerSubmission) (domain.SessionView, error) {
	session, quiz, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	finished, err := session.answer(quiz, submission, s.rnd)
	if err != nil {
		return session.view(quiz), err
	}
	view := session.view(quiz)
	if finished && view.Result != nil {
		s.logger.Info("quiz completed",
			zap.String("session", sessionID),
			zap.String("vibe", view.Result.ID))
	}
	return view, nil
}

// Restart clears everything the session collected and returns to intake.
func (s *QuizService) Restart(ctx context.Context, sessionID string) (domain.SessionView, error) {
	session, quiz, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	session.restart()
	return session.view(quiz), nil
}

// Publish hands the session result to the submission store. Failures leave
// the session on the results stage so the user can retry. Over-long name or
// handle overrides are rejected before anything is stored.
func (s *QuizService) Publish(ctx context.Context, sessionID string, req domain.PublishRequest) (domain.Submission, error) {
	session, _, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if err := validatePublishRequest(req); err != nil {
		return domain.Submission{}, err
	}
	intake, vibe, err := session.beginPublish()
	if err != nil {
		return domain.Submission{}, err
	}

	submission := BuildSubmission(intake, req, vibe, s.rnd)
	submission.ID = s.newID()
	submission.CreatedAt = s.now().UTC()

	saved, err := s.submissions.Create(ctx, submission)
	if err != nil {
		session.endPublish(false)
		s.logger.Warn("publish failed", zap.String("session", sessionID), zap.Error(err))
		return domain.Submission{}, fmt.Errorf("%w: %w", domain.ErrPublishFailed, err)
	}
	session.endPublish(true)
	s.logger.Info("result published",
		zap.String("session", sessionID),
		zap.String("submission", saved.ID),
		zap.Bool("public", saved.ShowPublicly))
	return saved, nil
}

// Close drops a session once its client has gone away.
func (s *QuizService) Close(_ context.Context, sessionID string) {
	s.sessions.Delete(sessionID)
}

func (s *QuizService) load(ctx context.Context, sessionID string) (*Session, domain.Quiz, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.Quiz{}, domain.ErrSessionNotFound
	}
	quiz, err := s.Quiz(ctx)
	if err != nil {
		return nil, domain.Quiz{}, err
	}
	return session, quiz, nil
}

// BuildSubmission assembles the gallery record for a finished quiz.
func BuildSubmission(intake domain.Intake, req domain.PublishRequest, vibe domain.Vibe, rnd Rand) domain.Submission {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = intake.DisplayName
	}
	if req.Anonymous {
		name = anonymousName
	}
	age := 0
	if intake.Age != nil {
		age = *intake.Age
	}
	return domain.Submission{
		DisplayName:  name,
		Age:          age,
		Gender:       intake.Gender.Normalize(),
		VibeID:       vibe.ID,
		Rating:       drawRating(rnd, minRating, maxRating),
		Instagram:    firstNonEmpty(req.Instagram, intake.Instagram),
		Twitter:      firstNonEmpty(req.Twitter, intake.Twitter),
		Facebook:     firstNonEmpty(req.Facebook, intake.Facebook),
		ShowPublicly: !req.Anonymous,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ErrorKind classifies an error for client-facing notices.
func ErrorKind(err error) string {
	switch {
	case domain.IsValidation(err):
		return "validation"
	case errors.Is(err, domain.ErrInvalidStage),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrPublishInFlight),
		errors.Is(err, domain.ErrAlreadyPublished):
		return "stage"
	case errors.Is(err, domain.ErrPublishFailed):
		return "persistence"
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrSessionInUse):
		return "session"
	}
	return "internal"
}
