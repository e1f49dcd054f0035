package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/flag-practice/internal/practice"
)

const activeSessionIndex = "practice_sessions_one_active_idx"

// SessionRepository persists practice sessions. The partial unique index on
// active sessions and the conditional updates below carry the concurrency
// guarantees of practice.Repository.
type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

var _ practice.Repository = (*SessionRepository)(nil)

const sessionColumns = `
id, user_id, mode, requested_length, session_length, flag_ids, current_index,
correct_count, score, status, started_at, completed_at, seed, generation_time_ms, questions`

// CreateIfNoActive inserts s, mapping the active-session index violation to
// practice.ErrConflict.
func (r *SessionRepository) CreateIfNoActive(ctx context.Context, s *practice.Session) error {
	flagIDs, err := json.Marshal(s.FlagIDs)
	if err != nil {
		return fmt.Errorf("encode flag ids: %w", err)
	}
	var questions []byte
	if s.Questions.Generated() {
		if questions, err = json.Marshal(s.Questions.Items()); err != nil {
			return fmt.Errorf("encode questions: %w", err)
		}
	}

	_, err = r.db.Exec(ctx, `
INSERT INTO practice_sessions (`+sessionColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		s.ID, s.UserID, string(s.Mode), s.Length.String(), s.SessionLength, flagIDs, s.CurrentIndex,
		s.CorrectCount, s.Score, string(s.Status), s.StartedAt, s.CompletedAt, s.Seed,
		s.GenerationTime.Milliseconds(), questions,
	)
	if err != nil {
		if isUniqueViolation(err, activeSessionIndex) {
			return practice.ErrConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get loads one session.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*practice.Session, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM practice_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", practice.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// FindActive returns the learner's active session or nil.
func (r *SessionRepository) FindActive(ctx context.Context, userID uuid.UUID) (*practice.Session, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+`
FROM practice_sessions WHERE user_id = $1 AND status = 'active'`, userID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active session: %w", err)
	}
	return s, nil
}

// ListByUser returns every session of a learner, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]practice.Session, error) {
	rows, err := r.db.Query(ctx, `SELECT `+sessionColumns+`
FROM practice_sessions WHERE user_id = $1 ORDER BY started_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (practice.Session, error) {
		s, err := scanSession(row)
		if err != nil {
			return practice.Session{}, err
		}
		return *s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return sessions, nil
}

// Advance writes the answer into the stored question and moves the session
// forward only if nobody else already did.
const advanceSQL = `
UPDATE practice_sessions
SET questions     = jsonb_set(questions, ARRAY[$3::int::text, 'user_answer'], to_jsonb($4::text)),
    correct_count = $5,
    score         = $6,
    current_index = $7,
    status        = $8,
    completed_at  = $9
WHERE id = $1
  AND status = 'active'
  AND current_index = $2
  AND questions IS NOT NULL
  AND questions -> $3::int ->> 'user_answer' IS NULL`

func (r *SessionRepository) Advance(ctx context.Context, id uuid.UUID, expectedIndex int, p practice.Progress) error {
	tag, err := r.db.Exec(ctx, advanceSQL,
		id, expectedIndex, p.QuestionIndex, p.UserAnswer,
		p.CorrectCount, p.Score, p.CurrentIndex, string(p.Status), p.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("advance session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s moved past question %d", practice.ErrSequence, id, expectedIndex)
	}
	return nil
}

// Abandon ends an active session.
func (r *SessionRepository) Abandon(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
UPDATE practice_sessions SET status = 'abandoned', completed_at = $2
WHERE id = $1 AND status = 'active'`, id, at)
	if err != nil {
		return fmt.Errorf("abandon session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s is not active", practice.ErrSequence, id)
	}
	return nil
}

func scanSession(row pgx.Row) (*practice.Session, error) {
	var (
		s               practice.Session
		mode, status    string
		requestedLength string
		flagIDs         []byte
		generationMs    int64
		questions       []byte
	)
	err := row.Scan(&s.ID, &s.UserID, &mode, &requestedLength, &s.SessionLength, &flagIDs, &s.CurrentIndex,
		&s.CorrectCount, &s.Score, &status, &s.StartedAt, &s.CompletedAt, &s.Seed, &generationMs, &questions)
	if err != nil {
		return nil, err
	}

	if s.Mode, err = practice.ParseMode(mode); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", practice.ErrDataIntegrity, s.ID, err)
	}
	if s.Status, err = practice.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", practice.ErrDataIntegrity, s.ID, err)
	}
	if s.Length, err = practice.ParseLength(requestedLength); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", practice.ErrDataIntegrity, s.ID, err)
	}
	if err := json.Unmarshal(flagIDs, &s.FlagIDs); err != nil {
		return nil, fmt.Errorf("%w: session %s flag ids: %v", practice.ErrDataIntegrity, s.ID, err)
	}
	s.GenerationTime = time.Duration(generationMs) * time.Millisecond

	s.Questions = practice.NoQuestions()
	if questions != nil {
		var items []practice.Question
		if err := json.Unmarshal(questions, &items); err != nil {
			return nil, fmt.Errorf("%w: session %s questions: %v", practice.ErrDataIntegrity, s.ID, err)
		}
		s.Questions = practice.GeneratedQuestions(items)
	}
	return &s, nil
}
