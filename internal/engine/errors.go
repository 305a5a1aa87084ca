package engine

import "errors"

var (
	// Transport failures are fatal: the session must be recreated.
	ErrTransportClosed = errors.New("engine transport closed")

	ErrNotInitialized     = errors.New("engine session not initialized")
	ErrAlreadyInitialized = errors.New("engine session already initialized")
	ErrTerminated         = errors.New("engine session terminated")
	ErrInvalidSearch      = errors.New("invalid search request")

	// A terminal line that couldn't be parsed. The session keeps running.
	ErrMalformedLine = errors.New("malformed engine line")
)

var ErrInvalidOption = errors.New("invalid engine option")
