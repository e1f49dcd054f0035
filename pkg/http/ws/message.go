package ws

import "encoding/json"

// MessageType constants for the practice WebSocket protocol.
const (
	// Client -> Server
	TypeSubmitAnswer    = "submit_answer"
	TypeRequestQuestion = "request_question"
	TypeAbandonSession  = "abandon_session"
	TypePing            = "ping"

	// Server -> Client
	TypeQuestion         = "question"
	TypeAnswerResult     = "answer_result"
	TypeSessionCompleted = "session_completed"
	TypeSessionAbandoned = "session_abandoned"
	TypeError            = "error"
	TypePong             = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage encodes payload under the given type. A nil payload is omitted.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = raw
	return msg, nil
}

// Reply builds a response that echoes the request ID of req.
func Reply(req Message, msgType string, payload interface{}) (Message, error) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return Message{}, err
	}
	msg.RequestID = req.RequestID
	return msg, nil
}

// Client Messages (incoming)

type SubmitAnswerPayload struct {
	QuestionIndex    *int   `json:"question_index"`
	SelectedOptionID string `json:"selected_option_id"`
}

// Server Messages (outgoing)

type SessionAbandonedPayload struct {
	SessionID string `json:"session_id"`
}

type SessionCompletedPayload struct {
	SessionID    string `json:"session_id"`
	Score        int    `json:"score"`
	CorrectCount int    `json:"correct_count"`
	Total        int    `json:"total"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		return Message{}, ErrMalformedMessage
	}
	return msg, nil
}
