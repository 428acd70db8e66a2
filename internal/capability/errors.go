package capability

import "errors"

// Registry errors.
var (
	// ErrNotFound is returned when a capability is not registered.
	ErrNotFound = errors.New("capability not found")

	// ErrNameEmpty is returned when an executor declares no name.
	ErrNameEmpty = errors.New("capability name cannot be empty")

	// ErrMissingParameter is returned when a required parameter is absent.
	ErrMissingParameter = errors.New("missing required parameter")
)
