package aggregate

import "errors"

var (
	// ErrIncomplete indicates Build was called before every category settled.
	ErrIncomplete = errors.New("aggregate: not every category has settled")

	// ErrUnknownFailure stands in for a nil error passed to Failure.
	ErrUnknownFailure = errors.New("aggregate: category failed without a reason")
)
