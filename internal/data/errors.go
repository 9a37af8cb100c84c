package data

import "errors"

// Sentinel errors shared by the stores. Callers map these to HTTP status
// codes or websocket error events at the boundary.
var (
	// ErrNotFound is returned when the referenced user, chat or message
	// does not exist (or was concurrently deleted).
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized is returned when an edit or delete is attempted by
	// someone other than the author, or an edit targets a non-text message.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrUserExists is returned when registration or a profile update would
	// duplicate an existing email.
	ErrUserExists = errors.New("user already exists")
)
