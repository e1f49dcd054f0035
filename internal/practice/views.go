package practice

import (
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/flag-practice/internal/catalog"
)

// QuestionView is a question as sent to clients. CorrectAnswer is only filled
// once the learner has answered.
type QuestionView struct {
	Index         int       `json:"index"`
	FlagID        uuid.UUID `json:"flag_id"`
	QuestionType  Mode      `json:"question_type"`
	Options       []Option  `json:"options"`
	UserAnswer    *string   `json:"user_answer,omitempty"`
	CorrectAnswer string    `json:"correct_answer,omitempty"`
}

func newQuestionView(i int, q Question) QuestionView {
	v := QuestionView{
		Index:        i,
		FlagID:       q.FlagID,
		QuestionType: q.Mode,
		Options:      q.Options,
		UserAnswer:   q.UserAnswer,
	}
	if q.Answered() {
		v.CorrectAnswer = q.CorrectAnswer
	}
	return v
}

// SessionView is the client representation of a session.
type SessionView struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	Mode             Mode            `json:"mode"`
	Length           Length          `json:"length"`
	SessionLength    int             `json:"session_length"`
	FlagIDs          []uuid.UUID     `json:"flag_ids"`
	CurrentIndex     int             `json:"current_index"`
	CorrectCount     int             `json:"correct_count"`
	Score            int             `json:"score"`
	Status           Status          `json:"status"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	Seed             *int64          `json:"seed,omitempty"`
	GenerationTimeMs int64           `json:"generation_time_ms"`
	Questions        []QuestionView  `json:"questions"`
	Progress         ProgressSummary `json:"progress"`
}

// NewSessionView renders s. Questions is nil for sessions without generated
// questions.
func NewSessionView(s *Session) SessionView {
	v := SessionView{
		ID:               s.ID,
		UserID:           s.UserID,
		Mode:             s.Mode,
		Length:           s.Length,
		SessionLength:    s.SessionLength,
		FlagIDs:          s.FlagIDs,
		CurrentIndex:     s.CurrentIndex,
		CorrectCount:     s.CorrectCount,
		Score:            s.Score,
		Status:           s.Status,
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
		Seed:             s.Seed,
		GenerationTimeMs: s.GenerationTime.Milliseconds(),
		Progress:         Summarize(s),
	}
	if s.Questions.Generated() {
		v.Questions = make([]QuestionView, s.Questions.Len())
		for i, q := range s.Questions.Items() {
			v.Questions[i] = newQuestionView(i, q)
		}
	}
	return v
}

// Prompt is what the learner is shown for the pending question. Learn mode
// shows the flag image; match mode shows its meaning.
type Prompt struct {
	Type      catalog.Type `json:"type"`
	ImagePath string       `json:"image_path,omitempty"`
	Meaning   string       `json:"meaning,omitempty"`
}

func newPrompt(mode Mode, flag catalog.Item) Prompt {
	p := Prompt{Type: flag.Type}
	switch mode {
	case ModeLearn:
		p.ImagePath = flag.ImagePath
	case ModeMatch:
		p.Meaning = flag.Meaning
	}
	return p
}

// CurrentQuestionView is the pending question as sent to clients.
type CurrentQuestionView struct {
	SessionID uuid.UUID       `json:"session_id"`
	Question  QuestionView    `json:"question"`
	Prompt    Prompt          `json:"prompt"`
	Progress  ProgressSummary `json:"progress"`
}

func NewCurrentQuestionView(cq *CurrentQuestion) CurrentQuestionView {
	return CurrentQuestionView{
		SessionID: cq.SessionID,
		Question:  newQuestionView(cq.Index, cq.Question),
		Prompt:    newPrompt(cq.Question.Mode, cq.Flag),
		Progress:  cq.Progress,
	}
}
