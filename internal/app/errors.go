package app

import "errors"

var (
	// ErrAlreadyRunning is returned by Run while a previous Run is active.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrShutdown is returned by Run after Shutdown.
	ErrShutdown = errors.New("application shut down")
)

// InitError reports the component whose initialization failed.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
