package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable reports a failed or timed out persistence read/write.
	// The outcome of the operation is unknown and must not be treated as empty.
	ErrStoreUnavailable = errors.New("message store unavailable")
	// ErrGenerationUnavailable reports that a responder could not produce text.
	ErrGenerationUnavailable = errors.New("response generation unavailable")
	// ErrInvalidInput reports empty or missing required fields at a boundary.
	ErrInvalidInput = errors.New("invalid input")
)

// InvalidInput wraps ErrInvalidInput with a field level reason.
func InvalidInput(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

// StoreUnavailable wraps a backend error so callers can match ErrStoreUnavailable.
func StoreUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// GenerationUnavailable wraps a provider error so callers can match ErrGenerationUnavailable.
func GenerationUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
}
