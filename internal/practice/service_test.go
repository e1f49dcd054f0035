package practice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/flag-practice/internal/auth"
	"github.com/gokatarajesh/flag-practice/internal/catalog"
)

type serviceFixture struct {
	svc     *Service
	repo    *memoryRepo
	metrics *Metrics
	user    *auth.User
}

func newServiceFixture(t *testing.T, items []catalog.Item, locker SubmitLocker) *serviceFixture {
	t.Helper()
	repo := newMemoryRepo()
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := NewService(repo, &staticCatalog{items: items}, locker, metrics, ServiceOptions{}, testLogger())
	return &serviceFixture{
		svc:     svc,
		repo:    repo,
		metrics: metrics,
		user:    &auth.User{ID: uuid.New(), DisplayName: "Pat"},
	}
}

// answerAll answers every question, getting the first n right.
func (f *serviceFixture) answerAll(t *testing.T, ctx context.Context, sess *Session, correct int) *AnswerResult {
	t.Helper()
	var last *AnswerResult
	for i, q := range sess.Questions.Items() {
		choice := q.CorrectAnswer
		if i >= correct {
			choice = wrongOption(q)
		}
		res, err := f.svc.SubmitAnswer(ctx, f.user, sess.ID, i, choice)
		require.NoError(t, err)
		last = res
	}
	return last
}

func wrongOption(q Question) string {
	for _, o := range q.Options {
		if o.ID != q.CorrectAnswer {
			return o.ID
		}
	}
	return ""
}

func TestServiceFullSession(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, standardItems(), nil)

	sess, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeLearn, Length: LengthOf(5)})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sess.Status)
	assert.Equal(t, 5, sess.SessionLength)
	require.Equal(t, 5, sess.Questions.Len())

	current, err := f.svc.GetCurrentQuestion(ctx, f.user, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, 0, current.Index)
	assert.Equal(t, sess.FlagIDs[0], current.Flag.ID)
	assert.Equal(t, 5, current.Progress.Total)

	last := f.answerAll(t, ctx, sess, 3)
	assert.True(t, last.Completed)
	assert.Equal(t, 60, last.Score)
	assert.Equal(t, 3, last.CorrectCount)

	stored, err := f.svc.GetSession(ctx, f.user, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, 5, stored.CurrentIndex)
	assert.Equal(t, 60, stored.Score)
	assert.NotNil(t, stored.CompletedAt)

	current, err = f.svc.GetCurrentQuestion(ctx, f.user, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, current)

	incomplete, err := f.svc.GetIncompleteSession(ctx, f.user)
	require.NoError(t, err)
	assert.Nil(t, incomplete)

	stats, err := f.svc.GetUserStats(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CompletedSessions)
	assert.InDelta(t, 60.0, stats.AverageScore, 1e-9)
	assert.Equal(t, 5, stats.TotalFlagsPracticed)

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.sessionsCreated.WithLabelValues("learn")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(f.metrics.answers.WithLabelValues("learn", "correct")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.answers.WithLabelValues("learn", "incorrect")), 0)
}

func TestServiceSingleActiveSession(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, standardItems(), nil)

	first, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeLearn, Length: LengthOf(3)})
	require.NoError(t, err)

	_, err = f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeMatch, Length: LengthOf(3)})
	assert.ErrorIs(t, err, ErrConflict)

	incomplete, err := f.svc.GetIncompleteSession(ctx, f.user)
	require.NoError(t, err)
	require.NotNil(t, incomplete)
	assert.Equal(t, first.ID, incomplete.ID)

	require.NoError(t, f.svc.AbandonSession(ctx, f.user, first.ID))

	second, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeMatch, Length: LengthOf(3)})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	abandoned, err := f.svc.GetSession(ctx, f.user, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAbandoned, abandoned.Status)

	// other learners are unaffected
	other := &auth.User{ID: uuid.New()}
	_, err = f.svc.CreateSession(ctx, other, CreateRequest{Mode: ModeLearn, Length: LengthOf(3)})
	assert.NoError(t, err)
}

func TestServiceAbandonTwice(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, standardItems(), nil)

	sess, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeLearn, Length: LengthOf(3)})
	require.NoError(t, err)
	require.NoError(t, f.svc.AbandonSession(ctx, f.user, sess.ID))
	assert.ErrorIs(t, f.svc.AbandonSession(ctx, f.user, sess.ID), ErrSequence)

	_, err = f.svc.SubmitAnswer(ctx, f.user, sess.ID, 0, "opt_0")
	assert.ErrorIs(t, err, ErrSequence)

	current, err := f.svc.GetCurrentQuestion(ctx, f.user, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestServiceRejectedSubmissionLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, standardItems(), nil)

	sess, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeMatch, Length: LengthOf(4)})
	require.NoError(t, err)
	q0 := sess.Questions.At(0)

	_, err = f.svc.SubmitAnswer(ctx, f.user, sess.ID, 0, q0.CorrectAnswer)
	require.NoError(t, err)
	before, err := f.svc.GetSession(ctx, f.user, sess.ID)
	require.NoError(t, err)

	_, err = f.svc.SubmitAnswer(ctx, f.user, sess.ID, 0, q0.CorrectAnswer)
	assert.ErrorIs(t, err, ErrSequence, "replay")
	_, err = f.svc.SubmitAnswer(ctx, f.user, sess.ID, 2, "opt_0")
	assert.ErrorIs(t, err, ErrSequence, "skip ahead")
	_, err = f.svc.SubmitAnswer(ctx, f.user, sess.ID, 1, "opt_9")
	assert.ErrorIs(t, err, ErrValidation)

	after, err := f.svc.GetSession(ctx, f.user, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, f.repo.advances)
	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.rejected.WithLabelValues("submit", "sequence")), 0)
}

func TestServiceConcurrentSubmissionsAcceptOne(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, standardItems(), nil)

	sess, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeLearn, Length: LengthOf(5)})
	require.NoError(t, err)
	answer := sess.Questions.At(0).CorrectAnswer

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SubmitAnswer(ctx, f.user, sess.ID, 0, answer)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, ErrSequence)
	}
	assert.Equal(t, 1, accepted)

	stored, err := f.svc.GetSession(ctx, f.user, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentIndex)
	assert.Equal(t, 1, stored.CorrectCount)
}

func TestServiceTinyCatalog(t *testing.T) {
	f := newServiceFixture(t, fourItems()[:3], nil)

	_, err := f.svc.CreateSession(context.Background(), f.user, CreateRequest{Mode: ModeLearn, Length: LengthOf(2)})
	assert.ErrorIs(t, err, ErrDataIntegrity)

	active, err := f.svc.GetIncompleteSession(context.Background(), f.user)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestServiceRequiresUser(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, standardItems(), nil)
	id := uuid.New()

	for _, user := range []*auth.User{nil, {ID: uuid.Nil}} {
		_, err := f.svc.CreateSession(ctx, user, CreateRequest{Mode: ModeLearn, Length: LengthOf(3)})
		assert.ErrorIs(t, err, ErrUnauthenticated)
		_, err = f.svc.SubmitAnswer(ctx, user, id, 0, "opt_0")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		_, err = f.svc.GetCurrentQuestion(ctx, user, id)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		_, err = f.svc.GetIncompleteSession(ctx, user)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		_, err = f.svc.GetUserStats(ctx, user)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.ErrorIs(t, f.svc.AbandonSession(ctx, user, id), ErrUnauthenticated)
	}
}

func TestServiceForbidsOtherUsers(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, standardItems(), nil)

	sess, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeLearn, Length: LengthOf(3)})
	require.NoError(t, err)

	intruder := &auth.User{ID: uuid.New()}
	_, err = f.svc.GetSession(ctx, intruder, sess.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.GetCurrentQuestion(ctx, intruder, sess.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.SubmitAnswer(ctx, intruder, sess.ID, 0, sess.Questions.At(0).CorrectAnswer)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.svc.AbandonSession(ctx, intruder, sess.ID), ErrForbidden)

	stored, err := f.svc.GetSession(ctx, f.user, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentIndex)
	assert.Equal(t, StatusActive, stored.Status)
}

func TestServiceUnknownSession(t *testing.T) {
	f := newServiceFixture(t, standardItems(), nil)
	_, err := f.svc.GetSession(context.Background(), f.user, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceLegacySessionWithoutQuestions(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, standardItems(), nil)

	legacy := Session{
		ID:            uuid.New(),
		UserID:        f.user.ID,
		Mode:          ModeLearn,
		Length:        LengthOf(3),
		SessionLength: 3,
		FlagIDs:       []uuid.UUID{uuid.New(), uuid.New(), uuid.New()},
		Status:        StatusActive,
		StartedAt:     time.Now(),
		Questions:     NoQuestions(),
	}
	f.repo.put(legacy)

	_, err := f.svc.GetCurrentQuestion(ctx, f.user, legacy.ID)
	assert.ErrorIs(t, err, ErrDataIntegrity)
	_, err = f.svc.SubmitAnswer(ctx, f.user, legacy.ID, 0, "opt_0")
	assert.ErrorIs(t, err, ErrDataIntegrity)

	// the learner can still walk away from it
	require.NoError(t, f.svc.AbandonSession(ctx, f.user, legacy.ID))
}

type busyLocker struct{ calls int }

func (l *busyLocker) Lock(context.Context, uuid.UUID) (func(), error) {
	l.calls++
	return nil, ErrSequence
}

func TestServiceLockContention(t *testing.T) {
	ctx := context.Background()
	locker := &busyLocker{}
	f := newServiceFixture(t, standardItems(), locker)

	sess, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeLearn, Length: LengthOf(3)})
	require.NoError(t, err)

	_, err = f.svc.SubmitAnswer(ctx, f.user, sess.ID, 0, sess.Questions.At(0).CorrectAnswer)
	assert.ErrorIs(t, err, ErrSequence)
	assert.Equal(t, 1, locker.calls)
	assert.Zero(t, f.repo.advances)
}

func TestServiceStrangerSubmitIsForbiddenWithoutLocking(t *testing.T) {
	ctx := context.Background()
	locker := &busyLocker{}
	f := newServiceFixture(t, standardItems(), locker)

	sess, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeLearn, Length: LengthOf(3)})
	require.NoError(t, err)

	stranger := &auth.User{ID: uuid.New()}
	_, err = f.svc.SubmitAnswer(ctx, stranger, sess.ID, 0, sess.Questions.At(0).CorrectAnswer)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "authorization", ErrorKind(err))
	assert.Zero(t, locker.calls)
}

func TestServiceCreateTrimsMode(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, standardItems(), nil)

	sess, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: " learn", Length: LengthOf(3)})
	require.NoError(t, err)
	assert.Equal(t, ModeLearn, sess.Mode)
	for _, q := range sess.Questions.Items() {
		assert.Equal(t, ModeLearn, q.Mode)
	}

	_, err = f.svc.CreateSession(ctx, &auth.User{ID: uuid.New()}, CreateRequest{Mode: "quiz", Length: LengthOf(3)})
	assert.Equal(t, "validation", ErrorKind(err))
}

func TestServiceAbandonCompletedSession(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, standardItems(), nil)

	sess, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeMatch, Length: LengthOf(3)})
	require.NoError(t, err)
	f.answerAll(t, ctx, sess, 3)

	assert.ErrorIs(t, f.svc.AbandonSession(ctx, f.user, sess.ID), ErrSequence)
	got, err := f.svc.GetSession(ctx, f.user, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}
