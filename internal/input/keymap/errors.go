package keymap

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFormat is returned for a file extension with no decoder.
	ErrUnknownFormat = errors.New("unknown keymap format")

	// ErrInvalidKeymap is returned when a keymap fails validation.
	ErrInvalidKeymap = errors.New("invalid keymap")

	// ErrUnknownKeymap is returned when a name is not registered.
	ErrUnknownKeymap = errors.New("unknown keymap")

	// ErrExtendsCycle is returned when extends chains loop back.
	ErrExtendsCycle = errors.New("keymap extends cycle")
)

// LoadError describes a keymap file that could not be loaded.
type LoadError struct {
	// Path is the file, or empty for in-memory data.
	Path string

	// Line is the 1-based line of the problem when the decoder reports one.
	Line int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	where := e.Path
	if where == "" {
		where = "keymap"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", where, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", where, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}
