package domain

import (
	"fmt"
	"time"
)

// Stage is a step of the quiz flow for a single session.
type Stage string

const (
	StageIntake   Stage = "intake"
	StageWelcome  Stage = "welcome"
	StageQuestion Stage = "question"
	StageResults  Stage = "results"
)

// Gender is the closed set of intake gender values.
type Gender string

const (
	GenderUnset          Gender = ""
	GenderBoi            Gender = "boi"
	GenderGurl           Gender = "gurl"
	GenderNonBinary      Gender = "non_binary"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

// Valid reports whether g is one of the accepted intake values (unset included).
func (g Gender) Valid() bool {
	switch g {
	case GenderUnset, GenderBoi, GenderGurl, GenderNonBinary, GenderOther, GenderPreferNotToSay:
		return true
	}
	return false
}

// Normalize maps g onto the values accepted by submission storage.
// Opted-out and unrecognized values become GenderOther.
func (g Gender) Normalize() Gender {
	switch g {
	case GenderBoi, GenderGurl, GenderNonBinary, GenderOther:
		return g
	}
	return GenderOther
}

// VibePoints is a single category delta carried by an option.
type VibePoints struct {
	Vibe  string `json:"vibe"`
	Delta int    `json:"delta"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID     string       `json:"id"`
	Text   string       `json:"text"`
	Emoji  string       `json:"emoji,omitempty"`
	Points []VibePoints `json:"points"`
}

// Question models a single multiple-choice question.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Icon    string   `json:"icon,omitempty"`
	Options []Option `json:"options"`
}

// Vibe is a result template awarded to the highest scoring category.
type Vibe struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
	Color       string `json:"color"`
	Quote       string `json:"quote"`
}

// Quiz is an ordered collection of questions plus the vibe table they score into.
type Quiz struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
	Vibes     []Vibe     `json:"vibes"`
}

// Validate checks the static content invariants the engine relies on.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("quiz %q: %w", q.ID, ErrEmptyQuiz)
	}
	if len(q.Vibes) == 0 {
		return fmt.Errorf("quiz %q: no vibes: %w", q.ID, ErrEmptyQuiz)
	}
	for _, question := range q.Questions {
		if len(question.Options) == 0 {
			return fmt.Errorf("question %q has no options: %w", question.ID, ErrEmptyQuiz)
		}
		for _, opt := range question.Options {
			for _, p := range opt.Points {
				if p.Delta < 0 {
					return fmt.Errorf("option %q: negative delta for %q: %w", opt.ID, p.Vibe, ErrNegativeDelta)
				}
			}
		}
	}
	return nil
}

// FindVibe looks up a vibe by ID.
func (q Quiz) FindVibe(id string) (Vibe, bool) {
	for _, v := range q.Vibes {
		if v.ID == id {
			return v, true
		}
	}
	return Vibe{}, false
}

// Intake is the identity data collected before the quiz starts.
type Intake struct {
	DisplayName string `json:"displayName"`
	Age         *int   `json:"age,omitempty"`
	Gender      Gender `json:"gender,omitempty"`
	Instagram   string `json:"instagram,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
	Facebook    string `json:"facebook,omitempty"`
}

// AnswerSubmission models the option selected by a client for the current question.
type AnswerSubmission struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

// PublishRequest carries the gallery details entered on the results screen.
type PublishRequest struct {
	DisplayName string `json:"displayName"`
	Anonymous   bool   `json:"anonymous"`
	Instagram   string `json:"instagram,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
	Facebook    string `json:"facebook,omitempty"`
}

// Submission is a published quiz result.
type Submission struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Age          int       `json:"age"`
	Gender       Gender    `json:"gender"`
	VibeID       string    `json:"vibeId"`
	Rating       int       `json:"rating"`
	Instagram    string    `json:"instagram,omitempty"`
	Twitter      string    `json:"twitter,omitempty"`
	Facebook     string    `json:"facebook,omitempty"`
	ShowPublicly bool      `json:"showPublicly"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SessionView is a client-facing snapshot of a quiz session.
type SessionView struct {
	SessionID     string       `json:"sessionId"`
	QuizID        string       `json:"quizId"`
	Stage         Stage        `json:"stage"`
	QuestionIndex int          `json:"questionIndex"`
	QuestionCount int          `json:"questionCount"`
	Question      *Question    `json:"question,omitempty"`
	Intake        *Intake      `json:"intake,omitempty"`
	Scores        []ScoreEntry `json:"scores"`
	Result        *Vibe        `json:"result,omitempty"`
	ResultTitle   string       `json:"resultTitle,omitempty"`
	Publishing    bool         `json:"publishing"`
	Published     bool         `json:"published"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}
