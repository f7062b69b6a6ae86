package fdp

import (
	"errors"
	"fmt"
)

// Error kinds returned by this package. Callers test with errors.Is.
// Transport failures from the node are never converted into one of these;
// they are returned wrapped with context only.
var (
	// ErrValidation marks malformed input rejected before any network call.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a feed slot, directory entry or object that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConsistency marks a stored record whose shape does not match what
	// the operation expects, e.g. a directory record where a file was expected.
	ErrConsistency = errors.New("consistency error")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func consistencyError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
}
