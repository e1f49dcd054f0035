package auth

import "github.com/google/uuid"

// User is the authenticated caller as resolved from a bearer token. The
// practice engine receives it explicitly on every call.
type User struct {
	ID          uuid.UUID
	DisplayName string
	IsGuest     bool
}
