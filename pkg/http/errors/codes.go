package errors

// Wire codes carried in ErrorResponse.Error.
const (
	// Authentication errors
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"

	// Resource errors
	ErrCodeNotFound        = "not_found"
	ErrCodeFlagNotFound    = "flag_not_found"
	ErrCodeSessionNotFound = "session_not_found"
	ErrCodeConflict        = "active_session_exists"

	// Practice session errors
	ErrCodeSequence         = "out_of_sequence"
	ErrCodeDataIntegrity    = "data_integrity"
	ErrCodeGenerationFailed = "generation_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError = "internal_error"
	ErrCodeUpstreamError = "upstream_error"
)
