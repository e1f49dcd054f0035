package practice

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists sessions. Implementations enforce the single-active
// rule and the strict answer order themselves:
//
//   - CreateIfNoActive fails with ErrConflict when the user already has an
//     active session.
//   - Advance applies p only while the session is active, its current index
//     equals expectedIndex and question p.QuestionIndex is unanswered;
//     otherwise it changes nothing and returns ErrSequence.
//   - Abandon succeeds only for an active session, else ErrSequence.
//   - Get returns ErrNotFound for unknown ids. FindActive returns nil, nil
//     when the user has no active session.
type Repository interface {
	CreateIfNoActive(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	FindActive(ctx context.Context, userID uuid.UUID) (*Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Session, error)
	Advance(ctx context.Context, id uuid.UUID, expectedIndex int, p Progress) error
	Abandon(ctx context.Context, id uuid.UUID, at time.Time) error
}
