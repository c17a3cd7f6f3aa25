package live

import "errors"

// Domain-level error values returned by the session access service.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrViewerNotFound       = errors.New("viewer not found")
	ErrSubscriptionRequired = errors.New("active subscription required")
	ErrAlreadyJoined        = errors.New("viewer already joined")
	ErrSessionFull          = errors.New("session at capacity")
	ErrInvalidState         = errors.New("session state does not permit operation")
	ErrInvalidSessionConfig = errors.New("invalid session config")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)
