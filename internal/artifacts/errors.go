package artifacts

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactNotFound means the reference does not resolve to existing source.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrArtifactInvalid means the artifact source or the request against it is unusable.
	ErrArtifactInvalid = errors.New("artifact invalid")
)

// NotFoundError wraps ErrArtifactNotFound with the offending reference.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("artifact not found: %s", e.Ref)
}

func (e *NotFoundError) Unwrap() error { return ErrArtifactNotFound }

// InvalidError wraps ErrArtifactInvalid with a human-readable reason.
type InvalidError struct {
	Ref    string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("artifact %s: %s", e.Ref, e.Reason)
}

func (e *InvalidError) Unwrap() error { return ErrArtifactInvalid }
