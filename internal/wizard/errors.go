package wizard

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the controller API. Callers classify failures with
// errors.Is; every returned error wraps exactly one of these sentinels.
var (
	// ErrNotFound: unknown session, step, or variant ID.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState: the operation is not legal for the current session or
	// step state (for example selecting on an already-completed step).
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation: malformed input such as an oversized upload or a
	// non-positive variant count.
	ErrValidation = errors.New("validation failed")

	// ErrProvider: a content-generation call failed. Batches are atomic, so
	// this error guarantees nothing was appended.
	ErrProvider = errors.New("provider failure")
)

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("wizard: "+format+": %w", append(args, ErrNotFound)...)
}

func invalidStatef(format string, args ...any) error {
	return fmt.Errorf("wizard: "+format+": %w", append(args, ErrInvalidState)...)
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("wizard: "+format+": %w", append(args, ErrValidation)...)
}

func providerf(format string, args ...any) error {
	return fmt.Errorf("wizard: "+format+": %w", append(args, ErrProvider)...)
}
