package command

import (
	"errors"
	"fmt"
)

// ErrUnknownCommand is returned when dispatch is asked for a name that no
// module registered.
var ErrUnknownCommand = errors.New("unknown command")

// InvalidParamsError reports a parameter set that does not match the
// command's schema.
type InvalidParamsError struct {
	Command string
	Reason  string
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("parameter mismatch for command %q: %s", e.Command, e.Reason)
}

// IsInvalidParams reports whether err (or anything it wraps) is an
// InvalidParamsError.
func IsInvalidParams(err error) bool {
	var ipe *InvalidParamsError
	return errors.As(err, &ipe)
}
