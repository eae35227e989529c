package domain

import "errors"

var (
	// ErrValidation marks carrier data that does not match the expected shape,
	// including event dates that cannot be decomposed.
	ErrValidation = errors.New("validation failed")
	// ErrAuthentication is returned when no carrier credential is configured.
	ErrAuthentication = errors.New("carrier credential not configured")
	// ErrUpstream wraps transport, HTTP and payload failures from a carrier.
	ErrUpstream = errors.New("carrier request failed")
	// ErrUnknownProvider is returned when a provider name is not registered.
	ErrUnknownProvider = errors.New("unknown tracking provider")
	// ErrInvalidTrackingCode is returned for a missing or malformed tracking code input.
	ErrInvalidTrackingCode = errors.New("tracking code is required and must be a single string")
	ErrTrackingNotFound    = errors.New("tracking record not found")
	ErrSweepInProgress     = errors.New("a sweep is already running")
)
