// Package common defines shared constants and sentinel errors used across
// the server and client layers of mathsolver. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// Entitlement errors: neither an active subscription nor a free credit.
	ErrInsufficientEntitlement = errors.New("insufficient entitlement")

	// ErrPersistence wraps failures to durably record a completed solve.
	// The solve itself already succeeded; these need reconciliation, not a retry.
	ErrPersistence = errors.New("persistence error")

	// Validation errors.
	ErrorValidation = errors.New("validation error")
)
