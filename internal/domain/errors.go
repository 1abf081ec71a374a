package domain

import "errors"

var (
	// ErrFetchInFlight is returned when Start is called while a fetch is pending.
	ErrFetchInFlight = errors.New("question fetch already in flight")
	// ErrInvalidPhase is returned for operations not permitted in the current phase.
	ErrInvalidPhase = errors.New("operation not valid in current session phase")
	// ErrCategoryNotFound indicates a configured category name is unknown to the provider.
	ErrCategoryNotFound = errors.New("trivia category not found")
	// ErrNoToken indicates no provider session token is stored.
	ErrNoToken = errors.New("no trivia session token stored")
)
