package storage

import (
	"errors"
	"fmt"
)

// ErrOutOfMemory is returned when a layout cannot allocate its backing
// buffer. The failing layout is always left in the empty 0 x 0 state.
var ErrOutOfMemory = errors.New("out of memory")

// IOError reports a failed matrix read or write.
type IOError struct {
	// Op is the failing operation, e.g. "Symmetric.ReadText"
	Op string
	// Path is the file involved, empty for stream operations
	Path string
	// Err is the underlying cause
	Err error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error { return e.Err }

func ioErr(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
