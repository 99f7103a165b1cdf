package uci

import (
	"errors"
	"fmt"
)

// Error classes reported by the driver. Callers match them with errors.Is;
// the concrete error is always an *OpError naming the failed operation.
var (
	// ErrLaunch indicates the engine subprocess could not be started or did
	// not complete the protocol handshake.
	ErrLaunch = errors.New("uci: engine launch failed")

	// ErrTimeout indicates the engine did not produce its terminal marker
	// before the deadline.
	ErrTimeout = errors.New("uci: engine timed out")

	// ErrProtocol indicates engine output that could not be interpreted.
	ErrProtocol = errors.New("uci: malformed engine output")

	// ErrIO indicates a closed or broken pipe, usually because the engine
	// exited.
	ErrIO = errors.New("uci: engine pipe closed")
)

// OpError records the driver operation that failed together with its cause.
type OpError struct {
	Op    string
	Class error
	Err   error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (%s)", e.Class, e.Op)
	}
	return fmt.Sprintf("%v (%s): %v", e.Class, e.Op, e.Err)
}

// Unwrap exposes both the error class and the underlying cause.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Class}
	}
	return []error{e.Class, e.Err}
}

func opError(op string, class, err error) error {
	return &OpError{Op: op, Class: class, Err: err}
}
