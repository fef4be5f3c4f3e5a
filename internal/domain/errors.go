package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited indicates rate limit exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrTurnInFlight is returned when a message is sent while a turn is open
	ErrTurnInFlight = errors.New("a response is already in progress")
	// ErrEmptyMessage is returned for blank user input
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNoResponseBody indicates a stream response without a body
	ErrNoResponseBody = errors.New("response has no body")
)
