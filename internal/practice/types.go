package practice

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode selects what a learner is asked to recognise.
type Mode string

const (
	// ModeLearn shows a flag image and asks for its name.
	ModeLearn Mode = "learn"
	// ModeMatch shows a meaning and asks for the flag image.
	ModeMatch Mode = "match"
)

// Modes lists every mode in declaration order.
var Modes = []Mode{ModeLearn, ModeMatch}

func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.TrimSpace(raw)); m {
	case ModeLearn, ModeMatch:
		return m, nil
	default:
		return "", &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", raw)}
	}
}

// Status is the session lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusActive, StatusCompleted, StatusAbandoned:
		return s, nil
	default:
		return "", fmt.Errorf("unknown session status %q", raw)
	}
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Length is a requested session size: a fixed count or the whole catalog.
type Length struct {
	Count int
	All   bool
}

// LengthAll requests every catalog item in canonical order.
var LengthAll = Length{All: true}

// LengthOf requests n randomly sampled items.
func LengthOf(n int) Length { return Length{Count: n} }

func (l Length) String() string {
	if l.All {
		return "all"
	}
	return strconv.Itoa(l.Count)
}

// ParseLength accepts "all" or a positive integer.
func ParseLength(raw string) (Length, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "all" {
		return LengthAll, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Length{}, &ValidationError{Field: "length", Message: fmt.Sprintf("length must be a positive integer or \"all\", got %q", raw)}
	}
	return LengthOf(n), nil
}

func (l Length) MarshalJSON() ([]byte, error) {
	if l.All {
		return []byte(`"all"`), nil
	}
	return []byte(strconv.Itoa(l.Count)), nil
}

func (l *Length) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*l = LengthOf(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &ValidationError{Field: "length", Message: "length must be a number or \"all\""}
	}
	parsed, err := ParseLength(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Option is one selectable answer. ID is positional (opt_0..opt_3) and Value
// is the underlying item key.
type Option struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Value     string `json:"value"`
	ImagePath string `json:"image_path,omitempty"`
}

// Question is one item under test. UserAnswer is written at most once.
type Question struct {
	FlagID        uuid.UUID `json:"flag_id"`
	Mode          Mode      `json:"question_type"`
	Options       []Option  `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`
	UserAnswer    *string   `json:"user_answer"`
}

// Answered reports whether the learner already responded.
func (q Question) Answered() bool { return q.UserAnswer != nil }

// HasOption reports whether id names one of the question's options.
func (q Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// QuestionSet is either a generated question sequence or absent. Sessions
// created before question generation existed carry the absent form.
type QuestionSet struct {
	items     []Question
	generated bool
}

// GeneratedQuestions wraps a question sequence built at session creation.
func GeneratedQuestions(items []Question) QuestionSet {
	return QuestionSet{items: items, generated: true}
}

// NoQuestions is the absent form.
func NoQuestions() QuestionSet { return QuestionSet{} }

func (q QuestionSet) Generated() bool { return q.generated }

// Items returns the sequence. It is nil for the absent form.
func (q QuestionSet) Items() []Question { return q.items }

func (q QuestionSet) Len() int { return len(q.items) }

// At returns question i. Callers check bounds first.
func (q QuestionSet) At(i int) Question { return q.items[i] }

// WithAnswer returns a copy with question i answered.
func (q QuestionSet) WithAnswer(i int, optionID string) QuestionSet {
	items := make([]Question, len(q.items))
	copy(items, q.items)
	answer := optionID
	items[i].UserAnswer = &answer
	return QuestionSet{items: items, generated: q.generated}
}

// Session is one quiz attempt.
type Session struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Mode           Mode
	Length         Length
	SessionLength  int
	FlagIDs        []uuid.UUID
	CurrentIndex   int
	CorrectCount   int
	Score          int
	Status         Status
	StartedAt      time.Time
	CompletedAt    *time.Time
	Seed           *int64
	GenerationTime time.Duration
	Questions      QuestionSet
}

// Total is the number of questions, falling back to the selected item count
// for sessions without generated questions.
func (s *Session) Total() int {
	if s.Questions.Generated() {
		return s.Questions.Len()
	}
	return len(s.FlagIDs)
}

// Pending reports whether an unanswered question remains.
func (s *Session) Pending() bool {
	return s.Status == StatusActive && s.CurrentIndex < s.Total()
}

// Progress is the outcome of one accepted submission, persisted by
// Repository.Advance.
type Progress struct {
	QuestionIndex int
	UserAnswer    string
	CorrectCount  int
	Score         int
	CurrentIndex  int
	Status        Status
	CompletedAt   *time.Time
}

// AnswerResult is returned to the learner after a submission.
type AnswerResult struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Streak        int    `json:"streak"`
	Score         int    `json:"score"`
	CorrectCount  int    `json:"correct_count"`
	Total         int    `json:"total"`
	Completed     bool   `json:"completed"`
	NextIndex     *int   `json:"next_index,omitempty"`
}

// Stats summarises a learner's history.
type Stats struct {
	TotalSessions       int        `json:"total_sessions"`
	CompletedSessions   int        `json:"completed_sessions"`
	AverageScore        float64    `json:"average_score"`
	LastPracticed       *time.Time `json:"last_practiced,omitempty"`
	TotalFlagsPracticed int        `json:"total_flags_practiced"`
	FavoriteMode        *Mode      `json:"favorite_mode,omitempty"`
}
