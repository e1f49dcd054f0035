package practice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/flag-practice/internal/auth"
	"github.com/gokatarajesh/flag-practice/internal/logging"
	httperrors "github.com/gokatarajesh/flag-practice/pkg/http/errors"
	"github.com/gokatarajesh/flag-practice/pkg/http/ws"
)

const maxBodyBytes = 1 << 16

// Publisher fans session events out to live clients.
type Publisher interface {
	Publish(sessionID uuid.UUID, msgType string, payload interface{})
}

// HTTPHandler exposes the engine over REST.
type HTTPHandler struct {
	svc       *Service
	publisher Publisher
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewHTTPHandler builds the REST handler. publisher may be nil.
func NewHTTPHandler(svc *Service, publisher Publisher, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:       svc,
		publisher: publisher,
		validator: newValidator(),
		logger:    logger.With().Str("component", "practice_http").Logger(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Routes mounts the session routes. Callers wrap them with auth middleware.
func (h *HTTPHandler) Routes(r chi.Router) {
	r.Get("/stats", h.HandleStats)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/active", h.HandleActive)
		r.Get("/{id}", h.HandleGet)
		r.Get("/{id}/current", h.HandleCurrent)
		r.Post("/{id}/answers", h.HandleSubmit)
		r.Post("/{id}/abandon", h.HandleAbandon)
	})
}

type submitAnswerRequest struct {
	QuestionIndex    *int   `json:"question_index" validate:"required"`
	SelectedOptionID string `json:"selected_option_id" validate:"required"`
}

type activeSessionResponse struct {
	Session *SessionView `json:"session"`
}

type abandonResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Status    Status    `json:"status"`
}

// HandleCreate serves POST /sessions.
func (h *HTTPHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	sess, err := h.svc.CreateSession(r.Context(), auth.UserFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewSessionView(sess))
}

// HandleActive serves GET /sessions/active.
func (h *HTTPHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetIncompleteSession(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var resp activeSessionResponse
	if sess != nil {
		view := NewSessionView(sess)
		resp.Session = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGet serves GET /sessions/{id}.
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	sess, err := h.svc.GetSession(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSessionView(sess))
}

// HandleCurrent serves GET /sessions/{id}/current. It answers 204 when the
// session has no pending question.
func (h *HTTPHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	cq, err := h.svc.GetCurrentQuestion(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if cq == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, NewCurrentQuestionView(cq))
}

// HandleSubmit serves POST /sessions/{id}/answers.
func (h *HTTPHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req submitAnswerRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	res, err := h.svc.SubmitAnswer(r.Context(), auth.UserFromContext(r.Context()), id, *req.QuestionIndex, req.SelectedOptionID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.publish(id, ws.TypeAnswerResult, res)
	if res.Completed {
		h.publish(id, ws.TypeSessionCompleted, completedPayload(id, res))
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAbandon serves POST /sessions/{id}/abandon.
func (h *HTTPHandler) HandleAbandon(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.svc.AbandonSession(r.Context(), auth.UserFromContext(r.Context()), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.publish(id, ws.TypeSessionAbandoned, ws.SessionAbandonedPayload{SessionID: id.String()})
	writeJSON(w, http.StatusOK, abandonResponse{SessionID: id, Status: StatusAbandoned})
}

// HandleStats serves GET /stats.
func (h *HTTPHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetUserStats(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *HTTPHandler) publish(id uuid.UUID, msgType string, payload interface{}) {
	if h.publisher != nil {
		h.publisher.Publish(id, msgType, payload)
	}
}

// decode reads a JSON body and runs struct validation on it.
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return fmt.Errorf("%w: malformed JSON body", errMalformedBody)
	}
	if err := h.validator.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{Field: fe.Field(), Message: fmt.Sprintf("failed %q constraint", fe.Tag())}
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

var errMalformedBody = errors.New("invalid request body")

func sessionIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &ValidationError{Field: "id", Message: "session id must be a UUID"}
	}
	return id, nil
}

// errorStatus maps an engine error to its HTTP status and wire code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, httperrors.ErrCodeInvalidRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, httperrors.ErrCodeAuthenticationRequired
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, httperrors.ErrCodeForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, httperrors.ErrCodeConflict
	case errors.Is(err, ErrSequence):
		return http.StatusConflict, httperrors.ErrCodeSequence
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, httperrors.ErrCodeValidationFailed
	case errors.Is(err, ErrDataIntegrity):
		return http.StatusUnprocessableEntity, httperrors.ErrCodeDataIntegrity
	case errors.Is(err, ErrGeneration):
		return http.StatusInternalServerError, httperrors.ErrCodeGenerationFailed
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, httperrors.ErrCodeSessionNotFound
	default:
		return http.StatusInternalServerError, httperrors.ErrCodeInternalError
	}
}

// publicMessage hides internal error text from clients.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "Something went wrong"
	}
	return err.Error()
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log := logging.FromContext(r.Context(), h.logger)
		log.Error().Err(err).Str("path", r.URL.Path).Msg("practice request failed")
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		httperrors.RespondValidationError(w, code, verr.Message, verr.Field)
		return
	}
	httperrors.RespondError(w, status, code, publicMessage(err, status))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
