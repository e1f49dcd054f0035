package practice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/flag-practice/internal/auth"
	"github.com/gokatarajesh/flag-practice/internal/catalog"
	"github.com/gokatarajesh/flag-practice/internal/logging"
)

// ServiceOptions tunes the session engine.
type ServiceOptions struct {
	Generator GeneratorOptions
}

// Service is the practice session engine.
type Service struct {
	repo      Repository
	catalog   CatalogReader
	generator *Generator
	locker    SubmitLocker
	metrics   *Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService wires the engine. locker and metrics may be nil.
func NewService(repo Repository, reader CatalogReader, locker SubmitLocker, metrics *Metrics, opts ServiceOptions, logger zerolog.Logger) *Service {
	if locker == nil {
		locker = noopLocker{}
	}
	return &Service{
		repo:      repo,
		catalog:   reader,
		generator: NewGenerator(reader, opts.Generator, metrics, logger),
		locker:    locker,
		metrics:   metrics,
		logger:    logger.With().Str("component", "practice").Logger(),
		now:       time.Now,
	}
}

// MaxSessionLength is the largest fixed length CreateSession accepts.
func (s *Service) MaxSessionLength() int { return s.generator.opts.MaxSessionLength }

func (s *Service) log(ctx context.Context) zerolog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func requireUser(user *auth.User) error {
	if user == nil || user.ID == uuid.Nil {
		return ErrUnauthenticated
	}
	return nil
}

// loadOwned fetches a session and checks the caller owns it.
func (s *Service) loadOwned(ctx context.Context, user *auth.User, id uuid.UUID) (*Session, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != user.ID {
		return nil, ErrForbidden
	}
	return sess, nil
}

// GetIncompleteSession returns the caller's active session, or nil.
func (s *Service) GetIncompleteSession(ctx context.Context, user *auth.User) (*Session, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	return s.repo.FindActive(ctx, user.ID)
}

// GetSession returns one of the caller's sessions.
func (s *Service) GetSession(ctx context.Context, user *auth.User, id uuid.UUID) (*Session, error) {
	return s.loadOwned(ctx, user, id)
}

// ProgressSummary describes how far a learner is through a session.
type ProgressSummary struct {
	Index     int     `json:"index"`
	Total     int     `json:"total"`
	Correct   int     `json:"correct"`
	Incorrect int     `json:"incorrect"`
	Streak    int     `json:"streak"`
	Accuracy  float64 `json:"accuracy"`
}

// CurrentQuestion is the next question to answer with its resolved flag.
type CurrentQuestion struct {
	SessionID uuid.UUID       `json:"session_id"`
	Index     int             `json:"index"`
	Question  Question        `json:"question"`
	Flag      catalog.Item    `json:"flag"`
	Progress  ProgressSummary `json:"progress"`
}

// Summarize reports progress over the answered prefix of a session.
func Summarize(sess *Session) ProgressSummary {
	answered := min(sess.CurrentIndex, sess.Total())
	p := ProgressSummary{
		Index:     sess.CurrentIndex,
		Total:     sess.Total(),
		Correct:   sess.CorrectCount,
		Incorrect: answered - sess.CorrectCount,
		Streak:    CurrentStreak(sess),
	}
	if answered > 0 {
		p.Accuracy = float64(sess.CorrectCount) / float64(answered) * 100
	}
	return p
}

// GetCurrentQuestion returns the pending question, or nil when the session
// is not active or every question is answered.
func (s *Service) GetCurrentQuestion(ctx context.Context, user *auth.User, id uuid.UUID) (*CurrentQuestion, error) {
	sess, err := s.loadOwned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if !sess.Pending() {
		return nil, nil
	}
	if !sess.Questions.Generated() || sess.CurrentIndex >= sess.Questions.Len() {
		return nil, fmt.Errorf("%w: session %s has no generated question %d", ErrDataIntegrity, sess.ID, sess.CurrentIndex)
	}

	q := sess.Questions.At(sess.CurrentIndex)
	flag, err := s.catalog.GetByID(ctx, q.FlagID)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrDataIntegrity, err)
		}
		return nil, err
	}

	return &CurrentQuestion{
		SessionID: sess.ID,
		Index:     sess.CurrentIndex,
		Question:  q,
		Flag:      flag,
		Progress:  Summarize(sess),
	}, nil
}

// CreateSession generates and stores a new active session for the caller.
func (s *Service) CreateSession(ctx context.Context, user *auth.User, req CreateRequest) (*Session, error) {
	sess, err := s.createSession(ctx, user, req)
	if err != nil {
		s.metrics.reject("create", err)
		return nil, err
	}
	return sess, nil
}

func (s *Service) createSession(ctx context.Context, user *auth.User, req CreateRequest) (*Session, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := req.Validate(s.MaxSessionLength()); err != nil {
		return nil, err
	}
	log := s.log(ctx)

	active, err := s.repo.FindActive(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("find active session: %w", err)
	}
	if active != nil {
		return nil, ErrConflict
	}

	set, err := s.generator.Generate(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Str("mode", string(req.Mode)).Msg("session generation failed")
		return nil, err
	}

	sess := &Session{
		ID:             uuid.New(),
		UserID:         user.ID,
		Mode:           req.Mode,
		Length:         req.Length,
		SessionLength:  len(set.FlagIDs),
		FlagIDs:        set.FlagIDs,
		Status:         StatusActive,
		StartedAt:      s.now().UTC(),
		Seed:           req.Seed,
		GenerationTime: set.Duration,
		Questions:      GeneratedQuestions(set.Questions),
	}
	if err := s.repo.CreateIfNoActive(ctx, sess); err != nil {
		return nil, err
	}

	s.metrics.sessionCreated(sess.Mode)
	log.Info().
		Str("session_id", sess.ID.String()).
		Str("user_id", user.ID.String()).
		Str("mode", string(sess.Mode)).
		Int("questions", sess.SessionLength).
		Msg("practice session created")
	return sess, nil
}

// SubmitAnswer records the caller's answer to the current question.
func (s *Service) SubmitAnswer(ctx context.Context, user *auth.User, id uuid.UUID, questionIndex int, optionID string) (*AnswerResult, error) {
	res, err := s.submitAnswer(ctx, user, id, questionIndex, optionID)
	if err != nil {
		s.metrics.reject("submit", err)
		log := s.log(ctx)
		log.Debug().Err(err).
			Str("session_id", id.String()).
			Int("question_index", questionIndex).
			Str("kind", ErrorKind(err)).
			Msg("answer rejected")
		return nil, err
	}
	return res, nil
}

func (s *Service) submitAnswer(ctx context.Context, user *auth.User, id uuid.UUID, questionIndex int, optionID string) (*AnswerResult, error) {
	// ownership is settled before taking the lock so strangers cannot hold it
	if _, err := s.loadOwned(ctx, user, id); err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	progress, res, err := ApplyAnswer(sess, user.ID, questionIndex, optionID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Advance(ctx, id, questionIndex, progress); err != nil {
		return nil, err
	}

	s.metrics.answer(sess.Mode, res.IsCorrect)
	if res.Completed {
		s.metrics.sessionFinished(sess.Mode, StatusCompleted)
		log := s.log(ctx)
		log.Info().
			Str("session_id", id.String()).
			Str("user_id", user.ID.String()).
			Int("score", res.Score).
			Msg("practice session completed")
	}
	return &res, nil
}

// AbandonSession ends an active session without completing it.
func (s *Service) AbandonSession(ctx context.Context, user *auth.User, id uuid.UUID) error {
	if err := s.abandonSession(ctx, user, id); err != nil {
		s.metrics.reject("abandon", err)
		return err
	}
	return nil
}

func (s *Service) abandonSession(ctx context.Context, user *auth.User, id uuid.UUID) error {
	sess, err := s.loadOwned(ctx, user, id)
	if err != nil {
		return err
	}
	if sess.Status.Terminal() {
		return errSessionInactive
	}
	if err := s.repo.Abandon(ctx, id, s.now().UTC()); err != nil {
		return err
	}
	s.metrics.sessionFinished(sess.Mode, StatusAbandoned)
	log := s.log(ctx)
	log.Info().
		Str("session_id", id.String()).
		Str("user_id", user.ID.String()).
		Int("question_index", sess.CurrentIndex).
		Msg("practice session abandoned")
	return nil
}

// GetUserStats aggregates the caller's session history.
func (s *Service) GetUserStats(ctx context.Context, user *auth.User) (Stats, error) {
	if err := requireUser(user); err != nil {
		return Stats{}, err
	}
	sessions, err := s.repo.ListByUser(ctx, user.ID)
	if err != nil {
		return Stats{}, fmt.Errorf("list sessions: %w", err)
	}
	return Aggregate(sessions), nil
}
