package notes

import (
	"errors"
	"fmt"
)

// ErrIO is matched by every *IOError.
var ErrIO = errors.New("content I/O failed")

// IOError reports a missing or unreadable directory or file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is makes every IOError match ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}
