package interview

import "errors"

var (
	// ErrInvalidTurnOrder is returned for a turn on an unknown or finished
	// session. The session is left untouched.
	ErrInvalidTurnOrder = errors.New("interview: invalid turn order")

	// ErrClassificationUnavailable marks a classifier failure. The turn
	// still proceeds on the conservative fallback classification, so this
	// error is recorded and counted rather than returned.
	ErrClassificationUnavailable = errors.New("interview: classification unavailable")

	// ErrPersistence is returned when the session could not be loaded or
	// saved. The turn is not committed.
	ErrPersistence = errors.New("interview: persistence failure")

	// ErrInvalidInput rejects a start request with an unknown language or
	// prompt version.
	ErrInvalidInput = errors.New("interview: invalid input")
)
