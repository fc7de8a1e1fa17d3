package app

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"vibe-check-service/internal/domain"
)

// Session is the in-memory state of one client's pass through the quiz.
// All transitions go through the methods below, which hold mu.
type Session struct {
	id        string
	createdAt time.Time
	now       func() time.Time

	mu         sync.Mutex
	stage      domain.Stage
	index      int
	scores     domain.ScoreMap
	intake     *domain.Intake
	result     *domain.Vibe
	publishing bool
	published  bool
	updatedAt  time.Time
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string) *Session {
	return newSessionWithClock(id, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, now func() time.Time) *Session {
	return newSessionWithClock(id, now)
}

func newSessionWithClock(id string, now func() time.Time) *Session {
	created := now()
	return &Session{
		id:        id,
		createdAt: created,
		now:       now,
		stage:     domain.StageIntake,
		updatedAt: created,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Stage returns the current stage.
func (s *Session) Stage() domain.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *Session) submitIntake(in domain.Intake) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != domain.StageIntake {
		return domain.ErrInvalidStage
	}
	clean, err := validateIntake(in)
	if err != nil {
		return err
	}
	s.intake = &clean
	s.stage = domain.StageWelcome
	s.touchLocked()
	return nil
}

func (s *Session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != domain.StageWelcome {
		return domain.ErrInvalidStage
	}
	s.index = 0
	s.scores.Reset()
	s.result = nil
	s.stage = domain.StageQuestion
	s.touchLocked()
	return nil
}

// answer merges the selected option and advances. It reports whether this
// answer completed the quiz.
func (s *Session) answer(quiz domain.Quiz, submission domain.AnswerSubmission, rnd Rand) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != domain.StageQuestion {
		return false, domain.ErrInvalidStage
	}
	if s.index < 0 || s.index >= len(quiz.Questions) {
		return false, domain.ErrQuestionNotFound
	}
	question := quiz.Questions[s.index]
	if submission.QuestionID != "" && submission.QuestionID != question.ID {
		return false, domain.ErrQuestionNotFound
	}

	var selected *domain.Option
	for i := range question.Options {
		if question.Options[i].ID == submission.OptionID {
			selected = &question.Options[i]
			break
		}
	}
	if selected == nil {
		return false, domain.ErrOptionNotFound
	}

	s.scores.Merge(selected.Points)
	s.touchLocked()
	if s.index+1 < len(quiz.Questions) {
		s.index++
		return false, nil
	}

	winner := DetermineVibe(&s.scores, quiz.Vibes, rnd)
	s.result = &winner
	s.stage = domain.StageResults
	return true, nil
}

func (s *Session) restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = domain.StageIntake
	s.index = 0
	s.scores.Reset()
	s.intake = nil
	s.result = nil
	s.publishing = false
	s.published = false
	s.touchLocked()
}

// beginPublish reserves the publish slot and returns the data the submission
// is built from.
func (s *Session) beginPublish() (domain.Intake, domain.Vibe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != domain.StageResults || s.result == nil || s.intake == nil {
		return domain.Intake{}, domain.Vibe{}, domain.ErrInvalidStage
	}
	if s.published {
		return domain.Intake{}, domain.Vibe{}, domain.ErrAlreadyPublished
	}
	if s.publishing {
		return domain.Intake{}, domain.Vibe{}, domain.ErrPublishInFlight
	}
	s.publishing = true
	return *s.intake, *s.result, nil
}

func (s *Session) endPublish(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishing = false
	if ok {
		s.published = true
	}
	s.touchLocked()
}

func (s *Session) view(quiz domain.Quiz) domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := domain.SessionView{
		SessionID:     s.id,
		QuizID:        quiz.ID,
		Stage:         s.stage,
		QuestionIndex: s.index,
		QuestionCount: len(quiz.Questions),
		Scores:        s.scores.Entries(),
		Publishing:    s.publishing,
		Published:     s.published,
		UpdatedAt:     s.updatedAt,
	}
	if s.stage == domain.StageQuestion && s.index < len(quiz.Questions) {
		q := quiz.Questions[s.index]
		v.Question = &q
	}
	if s.intake != nil {
		in := *s.intake
		v.Intake = &in
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
		gender := domain.GenderUnset
		if s.intake != nil {
			gender = s.intake.Gender
		}
		v.ResultTitle = ResultTitle(r, gender)
	}
	return v
}

func (s *Session) touchLocked() {
	s.updatedAt = s.now()
}

// Field caps keep a stored row small enough to travel in one live notice.
const (
	maxNameLength   = 40
	maxHandleLength = 64
)

func validateIntake(in domain.Intake) (domain.Intake, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.DisplayName == "" {
		return domain.Intake{}, &domain.ValidationError{
			Field:   "displayName",
			Message: "spill the tea! we need your name (or a cool alias)",
		}
	}
	if err := checkLength("displayName", in.DisplayName, maxNameLength); err != nil {
		return domain.Intake{}, err
	}
	if in.Age != nil && *in.Age < 1 {
		return domain.Intake{}, &domain.ValidationError{Field: "age", Message: "age must be a positive number"}
	}
	if !in.Gender.Valid() {
		return domain.Intake{}, &domain.ValidationError{Field: "gender", Message: "unknown gender option"}
	}
	in.Instagram = strings.TrimSpace(in.Instagram)
	in.Twitter = strings.TrimSpace(in.Twitter)
	in.Facebook = strings.TrimSpace(in.Facebook)
	if err := checkHandles(in.Instagram, in.Twitter, in.Facebook); err != nil {
		return domain.Intake{}, err
	}
	return in, nil
}

func validatePublishRequest(req domain.PublishRequest) error {
	if err := checkLength("displayName", strings.TrimSpace(req.DisplayName), maxNameLength); err != nil {
		return err
	}
	return checkHandles(strings.TrimSpace(req.Instagram), strings.TrimSpace(req.Twitter), strings.TrimSpace(req.Facebook))
}

func checkHandles(instagram, twitter, facebook string) error {
	if err := checkLength("instagram", instagram, maxHandleLength); err != nil {
		return err
	}
	if err := checkLength("twitter", twitter, maxHandleLength); err != nil {
		return err
	}
	return checkLength("facebook", facebook, maxHandleLength)
}

func checkLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return &domain.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%d characters max", limit),
		}
	}
	return nil
}
