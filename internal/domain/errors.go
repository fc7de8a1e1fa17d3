package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a quiz session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionInUse is returned when a session ID is already held by another client.
	ErrSessionInUse = errors.New("quiz session already in use")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is not the current question.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidStage is returned for a transition the current stage does not allow.
	ErrInvalidStage = errors.New("action not allowed in current stage")
	// ErrEmptyQuiz marks quiz content without questions, options or vibes.
	ErrEmptyQuiz = errors.New("quiz content is empty")
	// ErrNegativeDelta marks option points that would decrease a score.
	ErrNegativeDelta = errors.New("negative point delta")
	// ErrPublishFailed wraps a persistence failure while publishing a result.
	ErrPublishFailed = errors.New("could not save your vibe to the gallery")
	// ErrPublishInFlight is returned while a previous publish has not resolved.
	ErrPublishInFlight = errors.New("publish already in progress")
	// ErrAlreadyPublished is returned when the result was already published.
	ErrAlreadyPublished = errors.New("result already published")
)

// ValidationError reports a bad user-provided field. It never changes session state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
