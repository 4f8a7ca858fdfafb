package chat

import "errors"

var (
	// ErrTurnInProgress is returned when a session already has a turn awaiting its reply.
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")
	// ErrSessionErrored is returned for turns attempted after a store failure, until the session is re-attached.
	ErrSessionErrored = errors.New("session is in an errored state, re-attach to continue")
	// ErrNotAttached is returned for turns attempted before the session log was loaded.
	ErrNotAttached = errors.New("session has not been attached")
	// ErrNothingToRetry is returned when the log does not end with an unanswered user message.
	ErrNothingToRetry = errors.New("no unanswered user message to retry")
)
