package practice

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ApplyAnswer checks a submission against the session and computes its
// effects without mutating s. Preconditions are checked in a fixed order and
// each failure maps to its own error kind.
func ApplyAnswer(s *Session, userID uuid.UUID, questionIndex int, optionID string, now time.Time) (Progress, AnswerResult, error) {
	if s.UserID != userID {
		return Progress{}, AnswerResult{}, ErrForbidden
	}
	if s.Status != StatusActive {
		return Progress{}, AnswerResult{}, errSessionInactive
	}
	if !s.Questions.Generated() || s.Questions.Len() == 0 {
		return Progress{}, AnswerResult{}, fmt.Errorf("%w: session %s has no generated questions", ErrDataIntegrity, s.ID)
	}
	if questionIndex != s.CurrentIndex {
		return Progress{}, AnswerResult{}, fmt.Errorf("%w: expected question %d, got %d", ErrSequence, s.CurrentIndex, questionIndex)
	}
	total := s.Questions.Len()
	if questionIndex < 0 || questionIndex >= total {
		return Progress{}, AnswerResult{}, &ValidationError{
			Field:   "question_index",
			Message: fmt.Sprintf("question index %d out of range [0, %d)", questionIndex, total),
		}
	}
	q := s.Questions.At(questionIndex)
	if q.Answered() {
		return Progress{}, AnswerResult{}, fmt.Errorf("%w: question %d already answered", ErrSequence, questionIndex)
	}
	if !q.HasOption(optionID) {
		return Progress{}, AnswerResult{}, &ValidationError{
			Field:   "selected_option_id",
			Message: fmt.Sprintf("option %q is not part of question %d", optionID, questionIndex),
		}
	}

	isCorrect := optionID == q.CorrectAnswer
	correctCount := s.CorrectCount
	if isCorrect {
		correctCount++
	}
	answered := s.Questions.WithAnswer(questionIndex, optionID)

	p := Progress{
		QuestionIndex: questionIndex,
		UserAnswer:    optionID,
		CorrectCount:  correctCount,
		Score:         ScoreFor(correctCount, total),
		CurrentIndex:  questionIndex + 1,
		Status:        StatusActive,
	}
	res := AnswerResult{
		IsCorrect:     isCorrect,
		CorrectAnswer: q.CorrectAnswer,
		Streak:        Streak(answered.Items(), questionIndex),
		Score:         p.Score,
		CorrectCount:  correctCount,
		Total:         total,
	}
	if p.CurrentIndex == total {
		completedAt := now
		p.Status = StatusCompleted
		p.CompletedAt = &completedAt
		res.Completed = true
	} else {
		next := p.CurrentIndex
		res.NextIndex = &next
	}
	return p, res, nil
}

// Apply returns a copy of s with p's effects applied.
func (p Progress) Apply(s Session) Session {
	s.Questions = s.Questions.WithAnswer(p.QuestionIndex, p.UserAnswer)
	s.CorrectCount = p.CorrectCount
	s.Score = p.Score
	s.CurrentIndex = p.CurrentIndex
	s.Status = p.Status
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		s.CompletedAt = &at
	}
	return s
}

// ScoreFor is the rounded percentage of correct answers.
func ScoreFor(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// Streak counts consecutive correct answers ending at index from.
func Streak(questions []Question, from int) int {
	streak := 0
	for i := from; i >= 0; i-- {
		q := questions[i]
		if q.UserAnswer == nil || *q.UserAnswer != q.CorrectAnswer {
			break
		}
		streak++
	}
	return streak
}

// CurrentStreak is the streak ending at the most recently answered question.
func CurrentStreak(s *Session) int {
	if !s.Questions.Generated() || s.CurrentIndex == 0 {
		return 0
	}
	last := min(s.CurrentIndex, s.Questions.Len()) - 1
	return Streak(s.Questions.Items(), last)
}
