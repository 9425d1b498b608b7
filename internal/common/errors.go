// Package common defines shared constants and sentinel errors used across
// the data-protection subsystem. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// ErrAuthorizationDenied is returned when an access-policy predicate
	// rejected the attempted operation. It is distinct from ErrNotFound:
	// "doesn't exist" and "not allowed" must not be conflated here.
	ErrAuthorizationDenied = errors.New("operation not permitted")

	// ErrConsentRequired is returned when a consent-gated feature is
	// invoked without the required consent flag.
	ErrConsentRequired = errors.New("consent required")

	// Auth errors (invalid or malformed actor token).
	ErrInvalidToken = errors.New("invalid token")
)
