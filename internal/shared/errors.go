package shared

import "errors"

var (
	// ErrNotFound indicates the referenced resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing or invalid bearer credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the actor's role does not permit the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition indicates a lifecycle guard rejected the requested
	// status change. No writes are performed when this is returned.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict indicates a uniqueness invariant was violated, e.g. a second
	// sales order for the same quotation.
	ErrConflict = errors.New("conflict")
)
