package practice

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no identity was supplied.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the caller does not own the session.
	ErrForbidden = errors.New("session belongs to another user")
	// ErrConflict means the caller already has an active session.
	ErrConflict = errors.New("an active practice session already exists")
	// ErrSequence covers stale, out-of-order and repeated submissions, and
	// actions against a session that is no longer active.
	ErrSequence = errors.New("submission out of sequence")
	// ErrValidation covers malformed input.
	ErrValidation = errors.New("invalid request")
	// ErrDataIntegrity means stored data cannot support the operation.
	ErrDataIntegrity = errors.New("data integrity violation")
	// ErrGeneration means question generation failed for some item.
	ErrGeneration = errors.New("question generation failed")
	// ErrNotFound means the session does not exist.
	ErrNotFound = errors.New("practice session not found")
)

var errSessionInactive = fmt.Errorf("%w: session is not active", ErrSequence)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ErrorKind names the taxonomy class of err, or "internal".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "authentication"
	case errors.Is(err, ErrForbidden):
		return "authorization"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrSequence):
		return "sequence"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDataIntegrity):
		return "data_integrity"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
