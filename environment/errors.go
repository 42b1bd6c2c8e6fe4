package environment

import (
	"errors"
	"fmt"
)

// ErrConfiguration reports an unknown environment or one missing a capability.
var ErrConfiguration = errors.New("configuration error")

// ErrUnknownEnvironment is returned by Registry.Get for unregistered names.
var ErrUnknownEnvironment = fmt.Errorf("%w: unknown environment", ErrConfiguration)

// Error carries a failure raised by an environment method. The underlying
// error is passed through untouched and is reachable with errors.Is/As.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("environment %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	var envErr *Error
	if errors.As(err, &envErr) {
		return err
	}
	return &Error{Op: op, Err: err}
}

func newConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
