package models

import "errors"

var (
	// ErrPermissionDenied is returned when a write is rejected by access rules
	// or the caller is neither the owner nor the curator.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotConfigured is returned when identity or storage is not configured.
	ErrNotConfigured = errors.New("not configured")
	// ErrUnavailable marks transient network or backend failures.
	ErrUnavailable = errors.New("service unavailable")
	// ErrInvalidInput marks missing or malformed fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
)
