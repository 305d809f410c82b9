package domain

import "errors"

// Sentinel errors for the application.
//
// ErrInvalidInput covers validation failures rejected before any write;
// ErrNotFound covers identifiers that do not resolve. Dependency failures are
// wrapped with %w by the layer that hit them.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("resource already exists")
)
