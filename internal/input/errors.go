package input

import (
	"errors"
	"fmt"
)

// Sentinel errors for router configuration. They are returned and logged;
// the operation that produced them leaves previous state untouched.
var (
	// ErrUnknownContext is returned by SetContext for an unregistered name.
	ErrUnknownContext = errors.New("unknown input context")

	// ErrDuplicateContext is returned when a context name is registered twice.
	ErrDuplicateContext = errors.New("input context already registered")

	// ErrDuplicateSource is returned when a source name is registered twice.
	ErrDuplicateSource = errors.New("input source already registered")

	// ErrUnknownSource is returned for lookups of an unregistered source.
	ErrUnknownSource = errors.New("unknown input source")

	// ErrUnknownLayer is returned by SetLayerActive for an unknown layer.
	ErrUnknownLayer = errors.New("unknown priority layer")

	// ErrRouterDisposed is returned by operations on a disposed router.
	ErrRouterDisposed = errors.New("input router disposed")

	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("action handler cannot be nil")

	// ErrLoopRunning is returned when Run is called on a running loop.
	ErrLoopRunning = errors.New("input loop is already running")

	// ErrInvalidCondition is returned when a condition string cannot be parsed.
	ErrInvalidCondition = errors.New("invalid condition")
)

// SubscriberError describes a subscriber that failed while handling an action.
type SubscriberError struct {
	// SubscriptionID identifies the failing subscription.
	SubscriptionID string

	// Action is the action being delivered.
	Action string

	// Panicked is set when the handler panicked instead of returning an error.
	Panicked bool

	// Value is the recovered panic value, if any.
	Value any

	// Err is the returned error, if any.
	Err error
}

// Error implements the error interface.
func (e *SubscriberError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("subscriber %s panicked on action %q: %v", e.SubscriptionID, e.Action, e.Value)
	}
	return fmt.Sprintf("subscriber %s failed on action %q: %v", e.SubscriptionID, e.Action, e.Err)
}

// Unwrap returns the underlying error.
func (e *SubscriberError) Unwrap() error {
	return e.Err
}
