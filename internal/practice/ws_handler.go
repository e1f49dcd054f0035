package practice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/flag-practice/internal/auth"
	httperrors "github.com/gokatarajesh/flag-practice/pkg/http/errors"
	"github.com/gokatarajesh/flag-practice/pkg/http/ws"
)

// WSHandler runs the practice protocol over a WebSocket bound to one session.
type WSHandler struct {
	svc      *Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewWSHandler(svc *Service, hub *ws.Hub, upgrader websocket.Upgrader, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		svc:      svc,
		hub:      hub,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "practice_ws").Logger(),
	}
}

// Routes mounts GET /{id}.
func (h *WSHandler) Routes(r chi.Router) {
	r.Get("/{id}", h.HandleSession)
}

// Publish implements Publisher for REST-originated events.
func (h *WSHandler) Publish(sessionID uuid.UUID, msgType string, payload interface{}) {
	if h.hub.Count(sessionID) == 0 {
		return
	}
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("encode event failed")
		return
	}
	_ = h.hub.Broadcast(sessionID, msg, nil)
}

// HandleSession authorizes the caller against the session, upgrades, and
// pushes the pending question before reading client messages.
func (h *WSHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.UserFromContext(ctx)

	id, err := sessionIDParam(r)
	if err != nil {
		h.respondHTTPError(w, err)
		return
	}
	if _, err := h.svc.GetSession(ctx, user, id); err != nil {
		h.respondHTTPError(w, err)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	logger := h.logger.With().Str("session_id", id.String()).Str("user_id", user.ID.String()).Logger()
	conn := ws.NewConnection(raw, logger)
	h.hub.Register(id, conn)
	defer h.hub.Unregister(id, conn)

	go conn.WritePump()

	h.sendCurrent(ctx, conn, ws.Message{}, user, id)
	conn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(ctx, conn, user, id, msg)
	}, func(err error) {
		h.sendError(conn, ws.Message{}, httperrors.ErrCodeInvalidPayload, err.Error(), "")
	})
}

func (h *WSHandler) handleMessage(ctx context.Context, conn *ws.Connection, user *auth.User, id uuid.UUID, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeSubmitAnswer:
		return h.handleSubmit(ctx, conn, user, id, msg)
	case ws.TypeRequestQuestion:
		return h.sendCurrent(ctx, conn, msg, user, id)
	case ws.TypeAbandonSession:
		return h.handleAbandon(ctx, conn, user, id, msg)
	case ws.TypePing:
		return h.reply(conn, msg, ws.TypePong, nil)
	default:
		return h.sendError(conn, msg, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type), "")
	}
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Connection, user *auth.User, id uuid.UUID, msg ws.Message) error {
	var req ws.SubmitAnswerPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(conn, msg, httperrors.ErrCodeInvalidPayload, "Invalid submit_answer payload", "")
	}
	if req.QuestionIndex == nil {
		return h.sendError(conn, msg, httperrors.ErrCodeValidationFailed, "question_index is required", "question_index")
	}

	res, err := h.svc.SubmitAnswer(ctx, user, id, *req.QuestionIndex, req.SelectedOptionID)
	if err != nil {
		return h.sendEngineError(conn, msg, err)
	}

	if err := h.reply(conn, msg, ws.TypeAnswerResult, res); err != nil {
		return err
	}
	if event, err := ws.NewMessage(ws.TypeAnswerResult, res); err == nil {
		_ = h.hub.Broadcast(id, event, conn)
	}

	if !res.Completed {
		return h.sendCurrent(ctx, conn, ws.Message{}, user, id)
	}
	done, err := ws.NewMessage(ws.TypeSessionCompleted, completedPayload(id, res))
	if err != nil {
		return err
	}
	return h.hub.Broadcast(id, done, nil)
}

func completedPayload(id uuid.UUID, res *AnswerResult) ws.SessionCompletedPayload {
	return ws.SessionCompletedPayload{
		SessionID:    id.String(),
		Score:        res.Score,
		CorrectCount: res.CorrectCount,
		Total:        res.Total,
	}
}

func (h *WSHandler) handleAbandon(ctx context.Context, conn *ws.Connection, user *auth.User, id uuid.UUID, msg ws.Message) error {
	if err := h.svc.AbandonSession(ctx, user, id); err != nil {
		return h.sendEngineError(conn, msg, err)
	}
	if err := h.reply(conn, msg, ws.TypeSessionAbandoned, ws.SessionAbandonedPayload{SessionID: id.String()}); err != nil {
		return err
	}
	event, err := ws.NewMessage(ws.TypeSessionAbandoned, ws.SessionAbandonedPayload{SessionID: id.String()})
	if err != nil {
		return err
	}
	return h.hub.Broadcast(id, event, conn)
}

// sendCurrent pushes the pending question, or the terminal state when none is
// left.
func (h *WSHandler) sendCurrent(ctx context.Context, conn *ws.Connection, req ws.Message, user *auth.User, id uuid.UUID) error {
	cq, err := h.svc.GetCurrentQuestion(ctx, user, id)
	if err != nil {
		return h.sendEngineError(conn, req, err)
	}
	if cq != nil {
		return h.reply(conn, req, ws.TypeQuestion, NewCurrentQuestionView(cq))
	}

	sess, err := h.svc.GetSession(ctx, user, id)
	if err != nil {
		return h.sendEngineError(conn, req, err)
	}
	if sess.Status == StatusAbandoned {
		return h.reply(conn, req, ws.TypeSessionAbandoned, ws.SessionAbandonedPayload{SessionID: id.String()})
	}
	return h.reply(conn, req, ws.TypeSessionCompleted, ws.SessionCompletedPayload{
		SessionID:    id.String(),
		Score:        sess.Score,
		CorrectCount: sess.CorrectCount,
		Total:        sess.Total(),
	})
}

func (h *WSHandler) reply(conn *ws.Connection, req ws.Message, msgType string, payload interface{}) error {
	msg, err := ws.Reply(req, msgType, payload)
	if err != nil {
		return err
	}
	return conn.Send(msg)
}

func (h *WSHandler) sendEngineError(conn *ws.Connection, req ws.Message, err error) error {
	status, code := errorStatus(err)
	field := ""
	var verr *ValidationError
	if errors.As(err, &verr) {
		field = verr.Field
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("type", req.Type).Msg("practice message failed")
	}
	return h.sendError(conn, req, code, publicMessage(err, status), field)
}

func (h *WSHandler) sendError(conn *ws.Connection, req ws.Message, code, message, field string) error {
	return h.reply(conn, req, ws.TypeError, ws.ErrorPayload{Code: code, Message: message, Field: field})
}

func (h *WSHandler) respondHTTPError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	var verr *ValidationError
	if errors.As(err, &verr) {
		httperrors.RespondValidationError(w, code, verr.Message, verr.Field)
		return
	}
	httperrors.RespondError(w, status, code, publicMessage(err, status))
}
