package session

import "errors"

var (
	// ErrPrecondition is returned by search, apply and evaluate before init_search.
	ErrPrecondition = errors.New("precondition failed")

	ErrIllegalAction = errors.New("illegal action")

	// ErrMissingVariable is returned when apply names a variable that is absent or nil.
	ErrMissingVariable = errors.New("missing variable")

	// ErrInvalidOperation reports a malformed or unknown operation.
	ErrInvalidOperation = errors.New("invalid operation")
)
