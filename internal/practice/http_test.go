package practice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/flag-practice/internal/auth"
	httperrors "github.com/gokatarajesh/flag-practice/pkg/http/errors"
)

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(_ uuid.UUID, msgType string, _ interface{}) {
	p.events = append(p.events, msgType)
}

type httpFixture struct {
	*serviceFixture
	router    http.Handler
	publisher *recordingPublisher
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()
	f := newServiceFixture(t, standardItems(), nil)
	pub := &recordingPublisher{}
	h := NewHTTPHandler(f.svc, pub, testLogger())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("X-Anonymous") != "" {
				next.ServeHTTP(w, req)
				return
			}
			next.ServeHTTP(w, req.WithContext(auth.WithUser(req.Context(), f.user)))
		})
	})
	r.Route("/v1/practice", h.Routes)
	return &httpFixture{serviceFixture: f, router: r, publisher: pub}
}

func (f *httpFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHTTPCreateAndPlay(t *testing.T) {
	f := newHTTPFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/practice/sessions", map[string]interface{}{"mode": "match", "length": 4})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decodeBody[SessionView](t, rec)
	assert.Equal(t, ModeMatch, view.Mode)
	require.Len(t, view.Questions, 4)
	for _, q := range view.Questions {
		assert.Empty(t, q.CorrectAnswer, "unanswered questions must not leak answers")
	}

	base := "/v1/practice/sessions/" + view.ID.String()
	rec = f.do(t, http.MethodGet, base+"/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decodeBody[CurrentQuestionView](t, rec)
	assert.Equal(t, 0, current.Question.Index)
	assert.Empty(t, current.Question.CorrectAnswer)
	assert.NotEmpty(t, current.Prompt.Meaning)
	assert.Empty(t, current.Prompt.ImagePath)
	assert.NotContains(t, rec.Body.String(), "correct_answer")

	stored, err := f.repo.Get(context.Background(), view.ID)
	require.NoError(t, err)
	for i, q := range stored.Questions.Items() {
		rec = f.do(t, http.MethodPost, base+"/answers", map[string]interface{}{
			"question_index":     i,
			"selected_option_id": q.CorrectAnswer,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decodeBody[AnswerResult](t, rec)
		assert.True(t, res.IsCorrect)
		assert.Equal(t, i+1, res.Streak)
	}

	rec = f.do(t, http.MethodGet, base+"/current", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	final := decodeBody[SessionView](t, rec)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Score)
	for _, q := range final.Questions {
		assert.NotEmpty(t, q.CorrectAnswer)
	}

	rec = f.do(t, http.MethodGet, "/v1/practice/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[Stats](t, rec)
	assert.Equal(t, 1, stats.CompletedSessions)

	assert.Equal(t, []string{"answer_result", "answer_result", "answer_result", "answer_result", "session_completed"}, f.publisher.events)
}

func TestHTTPActiveSession(t *testing.T) {
	f := newHTTPFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/practice/sessions/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeBody[activeSessionResponse](t, rec).Session)

	rec = f.do(t, http.MethodPost, "/v1/practice/sessions", map[string]interface{}{"mode": "learn", "length": "all"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[SessionView](t, rec)
	assert.True(t, created.Length.All)

	rec = f.do(t, http.MethodGet, "/v1/practice/sessions/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	active := decodeBody[activeSessionResponse](t, rec)
	require.NotNil(t, active.Session)
	assert.Equal(t, created.ID, active.Session.ID)

	rec = f.do(t, http.MethodPost, "/v1/practice/sessions", map[string]interface{}{"mode": "learn", "length": 3})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httperrors.ErrCodeConflict, decodeBody[httperrors.ErrorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPost, "/v1/practice/sessions/"+created.ID.String()+"/abandon", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"session_abandoned"}, f.publisher.events)

	rec = f.do(t, http.MethodPost, "/v1/practice/sessions/"+created.ID.String()+"/abandon", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httperrors.ErrCodeSequence, decodeBody[httperrors.ErrorResponse](t, rec).Error)
}

func TestHTTPErrorMapping(t *testing.T) {
	f := newHTTPFixture(t)
	ctx := context.Background()
	sess, err := f.svc.CreateSession(ctx, f.user, CreateRequest{Mode: ModeLearn, Length: LengthOf(3)})
	require.NoError(t, err)
	base := "/v1/practice/sessions/" + sess.ID.String()

	other, err := f.svc.CreateSession(ctx, &auth.User{ID: uuid.New()}, CreateRequest{Mode: ModeLearn, Length: LengthOf(3)})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
		field  string
	}{
		{name: "bad mode", method: http.MethodPost, path: "/v1/practice/sessions", body: map[string]interface{}{"mode": "exam", "length": 3}, status: 400, code: "validation_failed", field: "mode"},
		{name: "bad length", method: http.MethodPost, path: "/v1/practice/sessions", body: map[string]interface{}{"mode": "learn", "length": "many"}, status: 400, code: "validation_failed", field: "length"},
		{name: "malformed json", method: http.MethodPost, path: "/v1/practice/sessions", body: "{", status: 400, code: "invalid_request"},
		{name: "bad session id", method: http.MethodGet, path: "/v1/practice/sessions/nope", status: 400, code: "validation_failed", field: "id"},
		{name: "unknown session", method: http.MethodGet, path: "/v1/practice/sessions/" + uuid.NewString(), status: 404, code: "session_not_found"},
		{name: "someone else's session", method: http.MethodGet, path: "/v1/practice/sessions/" + other.ID.String(), status: 403, code: "forbidden"},
		{name: "missing index", method: http.MethodPost, path: base + "/answers", body: map[string]interface{}{"selected_option_id": "opt_0"}, status: 400, code: "validation_failed", field: "question_index"},
		{name: "negative index", method: http.MethodPost, path: base + "/answers", body: map[string]interface{}{"question_index": -1, "selected_option_id": "opt_0"}, status: 409, code: "out_of_sequence"},
		{name: "out of order", method: http.MethodPost, path: base + "/answers", body: map[string]interface{}{"question_index": 2, "selected_option_id": "opt_0"}, status: 409, code: "out_of_sequence"},
		{name: "unknown option", method: http.MethodPost, path: base + "/answers", body: map[string]interface{}{"question_index": 0, "selected_option_id": "opt_5"}, status: 400, code: "validation_failed", field: "selected_option_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeBody[httperrors.ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, tt.field, resp.Field)
		})
	}
}

func TestHTTPAnonymousCaller(t *testing.T) {
	f := newHTTPFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/practice/stats", nil)
	req.Header.Set("X-Anonymous", "1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, httperrors.ErrCodeAuthenticationRequired, decodeBody[httperrors.ErrorResponse](t, rec).Error)
}

func TestHTTPLegacySessionIsUnprocessable(t *testing.T) {
	f := newHTTPFixture(t)
	legacy := Session{
		ID:        uuid.New(),
		UserID:    f.user.ID,
		Mode:      ModeLearn,
		Length:    LengthOf(2),
		FlagIDs:   []uuid.UUID{uuid.New(), uuid.New()},
		Status:    StatusActive,
		Questions: NoQuestions(),
	}
	f.repo.put(legacy)

	rec := f.do(t, http.MethodGet, "/v1/practice/sessions/"+legacy.ID.String()+"/current", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/practice/sessions/"+legacy.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"questions":null`)
}
