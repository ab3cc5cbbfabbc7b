package tribunal

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned for unknown session ids and surfaced to
// callers unchanged.
var ErrSessionNotFound = errors.New("session not found")

// ValidationError rejects malformed input (e.g. a document that is too
// short). It is surfaced to callers; everything else in this package
// degrades to defaults instead of failing.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}
