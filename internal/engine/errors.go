package engine

import "errors"

var (
	// ErrPermissionDenied indicates the actor lacks the required capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound indicates the referenced item or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation error")
	// ErrInvalidOperation indicates a structurally disallowed action.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrAuth indicates a credential mismatch. It never says which half was wrong.
	ErrAuth = errors.New("invalid credentials")
)
