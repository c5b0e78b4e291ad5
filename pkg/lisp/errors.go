package lisp

import "fmt"

// ArityError reports an operation invoked with the wrong number of
// arguments. Always recoverable by the caller.
type ArityError struct {
	Op   string
	Want string // "exactly 2", "at least 1", "1 or 2"
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: %s argument(s) required, got %d", e.Op, e.Want, e.Got)
}

// TypeError reports a value of the wrong variant passed to an
// operation. Always recoverable by the caller.
type TypeError struct {
	Op   string
	Want string
	Got  Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Op, e.Want, e.Got)
}
